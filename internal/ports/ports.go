package ports

import (
	"context"
	"time"

	"ArticleEnhancer/internal/domain"
)

// ArticleSource pulls original articles from upstream sites for seeding.
type ArticleSource interface {
	FetchArticles(ctx context.Context) ([]domain.Article, error)
}

// ArticleStore persists articles and their lineage.
type ArticleStore interface {
	List(ctx context.Context, filter domain.Filter) ([]domain.Article, error)
	Get(ctx context.Context, id int64) (domain.Article, error)
	Latest(ctx context.Context) (domain.Article, error)
	Derivatives(ctx context.Context, parentID int64) ([]domain.Article, error)
	Create(ctx context.Context, article domain.Article) (int64, error)
	Update(ctx context.Context, id int64, patch domain.ArticlePatch) error
	Delete(ctx context.Context, id int64) error
}

// ReferenceDiscoverer finds up to a couple of sources related to a title.
type ReferenceDiscoverer interface {
	Discover(ctx context.Context, title string) []domain.Reference
}

// ContentScraper extracts readable text from a page; failures come back as text.
type ContentScraper interface {
	Scrape(ctx context.Context, url string) string
}

// TextGenerator is a chat-style generative backend.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Synthesizer produces the derivative article from an original and its references.
type Synthesizer interface {
	Synthesize(ctx context.Context, original domain.Article, refs []domain.ReferenceContent) domain.Article
}

// Notifier streams enhancement summaries to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
