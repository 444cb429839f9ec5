package parser

import (
	"context"
	"errors"
	"testing"

	"ArticleEnhancer/internal/config"
	"ArticleEnhancer/internal/domain"
	"ArticleEnhancer/internal/scanner"
)

type fakeScanner struct {
	name     string
	articles []domain.Article
	err      error
	requests []scanner.Request
}

func (f *fakeScanner) Name() string { return f.name }

func (f *fakeScanner) Scan(_ context.Context, req scanner.Request) ([]domain.Article, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Article, len(f.articles))
	copy(out, f.articles)
	return out, nil
}

func TestStrategySourceAggregatesAndDedupes(t *testing.T) {
	t.Parallel()

	blog := &fakeScanner{name: "blog", articles: []domain.Article{
		{Title: "A", URL: "https://example.com/a"},
		{Title: "B", URL: "https://example.com/b", Source: "Custom"},
	}}
	broken := &fakeScanner{name: "broken", err: errors.New("listing down")}

	reg := scanner.NewRegistry()
	reg.Register(blog)
	reg.Register(broken)

	src := NewStrategySource(reg, []config.SiteConfig{
		{
			Name:       "First",
			Scanner:    "blog",
			Categories: []config.CategoryConfig{{Name: "blogs", URL: "https://example.com/blogs"}},
			Options:    map[string]string{"limit": "2"},
		},
		{Name: "Down", Scanner: "broken"},
		{Name: "Second", Scanner: "blog"},
	}, nil)

	articles, err := src.FetchArticles(context.Background())
	if err != nil {
		t.Fatalf("FetchArticles error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected duplicates dropped, got %d articles", len(articles))
	}
	if articles[0].Source != "First" || articles[1].Source != "Custom" {
		t.Fatalf("unexpected sources: %q, %q", articles[0].Source, articles[1].Source)
	}

	if len(blog.requests) != 2 {
		t.Fatalf("expected blog scanner to run twice, got %d", len(blog.requests))
	}
	first := blog.requests[0]
	if first.SiteName != "First" || len(first.Categories) != 1 || first.Categories[0].URL != "https://example.com/blogs" {
		t.Fatalf("unexpected request: %+v", first)
	}
	if first.Option("limit", "") != "2" {
		t.Fatalf("options not forwarded: %+v", first.Options)
	}
}

func TestStrategySourceAllSitesFail(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(&fakeScanner{name: "broken", err: errors.New("listing down")})

	src := NewStrategySource(reg, []config.SiteConfig{
		{Name: "Down", Scanner: "broken"},
		{Name: "Unknown", Scanner: "rss"},
	}, nil)

	if _, err := src.FetchArticles(context.Background()); err == nil {
		t.Fatalf("expected error when every site fails")
	}
}

func TestStrategySourceMisconfigured(t *testing.T) {
	t.Parallel()

	if _, err := NewStrategySource(nil, []config.SiteConfig{{Name: "x"}}, nil).FetchArticles(context.Background()); err == nil {
		t.Fatalf("expected error without registry")
	}
	if _, err := NewStrategySource(scanner.NewRegistry(), nil, nil).FetchArticles(context.Background()); err == nil {
		t.Fatalf("expected error without sites")
	}
}
