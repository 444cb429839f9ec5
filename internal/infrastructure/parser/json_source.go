package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ArticleEnhancer/internal/domain"
	"ArticleEnhancer/internal/ports"
)

// JSONFileSource replays a scraped_articles.json dump.
type JSONFileSource struct {
	path string
}

var _ ports.ArticleSource = (*JSONFileSource)(nil)

// NewJSONFileSource reads from path on every fetch.
func NewJSONFileSource(path string) *JSONFileSource {
	return &JSONFileSource{path: path}
}

type dumpedArticle struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Excerpt       string `json:"excerpt"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date"`
	Source        string `json:"source"`
	ScrapedAt     string `json:"scraped_at"`
}

// FetchArticles decodes the dump. Entries without a title are dropped.
func (s *JSONFileSource) FetchArticles(ctx context.Context) ([]domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}

	var dumped []dumpedArticle
	if err := json.Unmarshal(raw, &dumped); err != nil {
		return nil, fmt.Errorf("decode dump %s: %w", s.path, err)
	}

	articles := make([]domain.Article, 0, len(dumped))
	for _, d := range dumped {
		if strings.TrimSpace(d.Title) == "" {
			continue
		}
		scrapedAt := d.ScrapedAt
		if scrapedAt == "" {
			scrapedAt = time.Now().UTC().Format(time.RFC3339)
		}
		articles = append(articles, domain.Article{
			Title:         strings.TrimSpace(d.Title),
			Content:       d.Content,
			Excerpt:       d.Excerpt,
			URL:           d.URL,
			PublishedDate: d.PublishedDate,
			Source:        d.Source,
			ScrapedAt:     scrapedAt,
		})
	}
	return articles, nil
}
