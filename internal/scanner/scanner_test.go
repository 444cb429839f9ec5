package scanner

import (
	"context"
	"testing"

	"ArticleEnhancer/internal/domain"
)

type namedScanner string

func (n namedScanner) Name() string { return string(n) }

func (n namedScanner) Scan(context.Context, Request) ([]domain.Article, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(namedScanner("rss"))
	reg.Register(namedScanner("blog"))

	if names := reg.Names(); len(names) != 2 || names[0] != "blog" || names[1] != "rss" {
		t.Fatalf("unexpected names: %v", names)
	}
	if _, err := reg.Resolve("blog"); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if _, err := reg.Resolve("atom"); err == nil {
		t.Fatalf("expected error for unknown scanner")
	}

	var zero Registry
	zero.Register(namedScanner("late"))
	if _, err := zero.Resolve("late"); err != nil {
		t.Fatalf("zero registry should accept registrations: %v", err)
	}
}

func TestRequestOption(t *testing.T) {
	t.Parallel()

	req := Request{Options: map[string]string{"limit": "3", "empty": ""}}
	if got := req.Option("limit", "5"); got != "3" {
		t.Fatalf("expected 3, got %s", got)
	}
	if got := req.Option("empty", "5"); got != "5" {
		t.Fatalf("expected default for empty option, got %s", got)
	}
	if got := (Request{}).Option("limit", "5"); got != "5" {
		t.Fatalf("expected default for nil options, got %s", got)
	}
}
