package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ArticleEnhancer/internal/domain"
	"ArticleEnhancer/internal/ports"
)

// ErrNothingToEnhance reports that no original is waiting for a derivative.
var ErrNothingToEnhance = errors.New("nothing to enhance")

// EnhancerDeps wires the driven adapters into the enhancement run.
type EnhancerDeps struct {
	Store       ports.ArticleStore
	Discoverer  ports.ReferenceDiscoverer
	Scraper     ports.ContentScraper
	Synthesizer ports.Synthesizer
	Notifier    ports.Notifier
	Logger      *slog.Logger

	// ScrapeDelay is the pause between two consecutive reference scrapes.
	ScrapeDelay       time.Duration
	MarkParentUpdated bool
}

// Result summarizes one successful run.
type Result struct {
	RunID        string             `json:"run_id"`
	OriginalID   int64              `json:"original_id"`
	DerivativeID int64              `json:"derivative_id"`
	Title        string             `json:"title"`
	References   []domain.Reference `json:"references"`

	// ParentMarkError is set when the derivative was stored but the parent flag flip failed.
	ParentMarkError string `json:"parent_mark_error,omitempty"`
}

// Enhancer picks one unenhanced original and writes its derivative.
type Enhancer struct {
	store             ports.ArticleStore
	discoverer        ports.ReferenceDiscoverer
	scraper           ports.ContentScraper
	synthesizer       ports.Synthesizer
	notifier          ports.Notifier
	logger            *slog.Logger
	scrapeDelay       time.Duration
	markParentUpdated bool
	sleep             func(ctx context.Context, d time.Duration) error
	newRunID          func() string
}

// NewEnhancer constructs the orchestration component.
func NewEnhancer(deps EnhancerDeps) *Enhancer {
	return &Enhancer{
		store:             deps.Store,
		discoverer:        deps.Discoverer,
		scraper:           deps.Scraper,
		synthesizer:       deps.Synthesizer,
		notifier:          deps.Notifier,
		logger:            deps.Logger,
		scrapeDelay:       deps.ScrapeDelay,
		markParentUpdated: deps.MarkParentUpdated,
		sleep:             sleepContext,
		newRunID:          uuid.NewString,
	}
}

// Run executes search, scrape (one reference at a time), synthesis and a single create.
// Only store failures abort the run; the derivative is written in one call after
// synthesis completes.
func (e *Enhancer) Run(ctx context.Context) (Result, error) {
	if e.store == nil || e.synthesizer == nil {
		return Result{}, fmt.Errorf("enhancer misconfigured: store and synthesizer are required")
	}

	runID := e.newRunID()
	logger := e.logger
	if logger != nil {
		logger = logger.With("run_id", runID)
	}

	articles, err := e.store.List(ctx, domain.FilterAll)
	if err != nil {
		return Result{}, fmt.Errorf("list articles: %w", err)
	}

	original, ok := SelectCandidate(articles)
	if !ok {
		logInfo(logger, "no eligible original", "articles", len(articles))
		return Result{}, ErrNothingToEnhance
	}
	logInfo(logger, "enhancing article", "article_id", original.ID, "title", original.Title)

	var refs []domain.Reference
	if e.discoverer != nil {
		refs = e.discoverer.Discover(ctx, original.Title)
	}
	logDebug(logger, "references discovered", "count", len(refs))

	corpus, err := e.collect(ctx, logger, refs)
	if err != nil {
		return Result{}, err
	}

	derivative := e.synthesizer.Synthesize(ctx, original, corpus)
	derivativeID, err := e.store.Create(ctx, derivative)
	if err != nil {
		return Result{}, fmt.Errorf("create derivative of %d: %w", original.ID, err)
	}

	result := Result{
		RunID:        runID,
		OriginalID:   original.ID,
		DerivativeID: derivativeID,
		Title:        derivative.Title,
		References:   []domain.Reference(derivative.ReferenceURLs),
	}

	if e.markParentUpdated {
		if err := e.store.Update(ctx, original.ID, domain.ArticlePatch{IsUpdated: domain.FlagPtr(true)}); err != nil {
			result.ParentMarkError = err.Error()
			logWarn(logger, "mark parent updated failed", "article_id", original.ID, "error", err)
		}
	}

	logInfo(logger, "derivative stored", "article_id", original.ID, "derivative_id", derivativeID,
		"references", len(result.References))

	if e.notifier != nil {
		if err := e.notifier.PublishDigest(ctx, buildDigestMessage(result)); err != nil {
			logWarn(logger, "publish digest failed", "error", err)
		}
	}

	return result, nil
}

func (e *Enhancer) collect(ctx context.Context, logger *slog.Logger, refs []domain.Reference) ([]domain.ReferenceContent, error) {
	corpus := make([]domain.ReferenceContent, 0, len(refs))
	for i, ref := range refs {
		if i > 0 && e.scrapeDelay > 0 {
			if err := e.sleep(ctx, e.scrapeDelay); err != nil {
				return nil, fmt.Errorf("wait before scrape: %w", err)
			}
		}

		content := ""
		if e.scraper != nil {
			content = e.scraper.Scrape(ctx, ref.URL)
		}
		logDebug(logger, "reference scraped", "url", ref.URL, "chars", len(content))
		corpus = append(corpus, domain.ReferenceContent{Reference: ref, Content: content})
	}
	return corpus, nil
}

// SelectCandidate returns the newest original with is_updated=false that no other
// article names as its parent.
func SelectCandidate(articles []domain.Article) (domain.Article, bool) {
	parents := make(map[int64]bool, len(articles))
	for _, article := range articles {
		if article.ParentArticleID != nil {
			parents[*article.ParentArticleID] = true
		}
	}

	var (
		best  domain.Article
		found bool
	)
	for _, article := range articles {
		if bool(article.IsUpdated) || article.IsDerivative() || parents[article.ID] {
			continue
		}
		if !found || newer(article, best) {
			best = article
			found = true
		}
	}
	return best, found
}

func newer(a, b domain.Article) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// markdownEscaper escapes the entity characters of Telegram's legacy Markdown mode.
var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func buildDigestMessage(result Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Article enhanced*\n%s\n", markdownEscaper.Replace(result.Title))
	fmt.Fprintf(&b, "original #%d -> derivative #%d\n", result.OriginalID, result.DerivativeID)
	for _, ref := range result.References {
		title := ref.Title
		if title == "" {
			title = ref.URL
		}
		fmt.Fprintf(&b, "- %s\n%s\n", markdownEscaper.Replace(title), markdownEscaper.Replace(ref.URL))
	}
	return strings.TrimRight(b.String(), "\n")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func logInfo(logger *slog.Logger, msg string, args ...interface{}) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

func logDebug(logger *slog.Logger, msg string, args ...interface{}) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

func logWarn(logger *slog.Logger, msg string, args ...interface{}) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}
