package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"ArticleEnhancer/internal/config"
	"ArticleEnhancer/internal/httpapi"
	"ArticleEnhancer/internal/infrastructure/llm"
	"ArticleEnhancer/internal/infrastructure/parser"
	"ArticleEnhancer/internal/infrastructure/scheduler"
	"ArticleEnhancer/internal/infrastructure/scraper"
	"ArticleEnhancer/internal/infrastructure/search"
	"ArticleEnhancer/internal/infrastructure/storage"
	"ArticleEnhancer/internal/infrastructure/telegram"
	"ArticleEnhancer/internal/logging"
	"ArticleEnhancer/internal/ports"
	"ArticleEnhancer/internal/scanner"
	"ArticleEnhancer/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and owns the store lifecycle.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.SQLRepository
	enhancer *usecase.Enhancer
	registry *scanner.Registry
}

// New opens the store and builds every component.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	baseLogger.Debug("store ready", "driver", cfg.Database.Driver)

	contentScraper := scraper.New(nil, cfg.Scraper, baseLogger.With("component", "scraper"))
	discoverer := search.NewDiscoverer(nil, cfg.Search, baseLogger.With("component", "search"))

	generator := llm.FromConfig(ctx, cfg, baseLogger.With("component", "llm"))
	if generator == nil {
		baseLogger.Info("no generative backend configured, using template synthesis")
	}
	synthesizer := usecase.NewSynthesizer(generator, usecase.SynthesizerConfig{
		SystemPrompt:           cfg.ChatGPT.SystemPrompt,
		SourceSuffix:           cfg.Enhancer.SourceSuffix,
		ReferenceExcerptLength: cfg.Enhancer.ReferenceExcerptLength,
		ExcerptLength:          cfg.Enhancer.ExcerptLength,
	}, baseLogger.With("component", "synthesizer"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
	}

	enhancer := usecase.NewEnhancer(usecase.EnhancerDeps{
		Store:             store,
		Discoverer:        discoverer,
		Scraper:           contentScraper,
		Synthesizer:       synthesizer,
		Notifier:          notifier,
		Logger:            baseLogger.With("component", "enhancer"),
		ScrapeDelay:       cfg.Enhancer.ScrapeDelay,
		MarkParentUpdated: cfg.Enhancer.MarkParentUpdated,
	})

	registry := scanner.NewRegistry()
	registry.Register(parser.NewBlogScanner(nil, contentScraper, cfg.Scraper.UserAgent,
		baseLogger.With("component", "scanner.blog")))

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		enhancer: enhancer,
		registry: registry,
	}, nil
}

// Enhance performs a single enhancement run.
func (a *Application) Enhance(ctx context.Context) (usecase.Result, error) {
	return a.enhancer.Run(ctx)
}

// Serve runs the CRUD API until ctx is cancelled, then shuts the listener down gracefully.
func (a *Application) Serve(ctx context.Context) error {
	if !strings.EqualFold(a.cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := httpapi.NewArticleHandler(a.store, a.enhancer, a.logger.With("component", "http"))
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           httpapi.NewRouter(httpapi.RouterConfig{Articles: handler, Logger: a.logger.With("component", "http")}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Watch runs the enhancer immediately and then on every scheduler interval until ctx ends.
func (a *Application) Watch(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.enhancer, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching", "interval", a.cfg.Scheduler.Interval)

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Seed scrapes the configured sites into the store.
func (a *Application) Seed(ctx context.Context) (usecase.SeedReport, error) {
	source := parser.NewStrategySource(a.registry, a.cfg.Sites, a.logger.With("component", "source"))
	return usecase.NewSeeder(source, a.store, a.logger.With("component", "seeder")).Seed(ctx)
}

// Import loads a scraped_articles.json dump into the store.
func (a *Application) Import(ctx context.Context, path string) (usecase.SeedReport, error) {
	source := parser.NewJSONFileSource(path)
	return usecase.NewSeeder(source, a.store, a.logger.With("component", "import")).Seed(ctx)
}

// Close releases the store.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
