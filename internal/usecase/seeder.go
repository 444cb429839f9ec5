package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ArticleEnhancer/internal/ports"
)

// SeedReport counts what a seeding pass stored.
type SeedReport struct {
	Fetched  int     `json:"fetched"`
	Imported int     `json:"imported"`
	Failed   int     `json:"failed"`
	IDs      []int64 `json:"ids"`
}

// Seeder copies articles from a source into the store.
type Seeder struct {
	source ports.ArticleSource
	store  ports.ArticleStore
	logger *slog.Logger
}

// NewSeeder wires a source and a store.
func NewSeeder(source ports.ArticleSource, store ports.ArticleStore, logger *slog.Logger) *Seeder {
	return &Seeder{source: source, store: store, logger: logger}
}

// Seed fetches once and creates every article. Per-article failures are logged and counted;
// only a source failure aborts the pass.
func (s *Seeder) Seed(ctx context.Context) (SeedReport, error) {
	if s.source == nil || s.store == nil {
		return SeedReport{}, fmt.Errorf("seeder misconfigured: source and store are required")
	}

	articles, err := s.source.FetchArticles(ctx)
	if err != nil {
		return SeedReport{}, fmt.Errorf("fetch articles: %w", err)
	}

	report := SeedReport{Fetched: len(articles)}
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		id, err := s.store.Create(ctx, article)
		if err != nil {
			report.Failed++
			logWarn(s.logger, "store article failed", "title", article.Title, "error", err)
			continue
		}
		report.Imported++
		report.IDs = append(report.IDs, id)
		logDebug(s.logger, "article stored", "id", id, "title", article.Title)
	}

	logInfo(s.logger, "seed complete", "fetched", report.Fetched, "imported", report.Imported, "failed", report.Failed)
	return report, nil
}
