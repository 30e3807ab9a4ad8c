package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/infrastructure/metrics"
	"NewsCrawler/internal/infrastructure/parser"
	"NewsCrawler/internal/infrastructure/scheduler"
	"NewsCrawler/internal/infrastructure/storage"
	"NewsCrawler/internal/infrastructure/telegram"
	"NewsCrawler/internal/logging"
	"NewsCrawler/internal/ports"
	"NewsCrawler/internal/scanner"
	"NewsCrawler/internal/usecase"
)

// Options adjust how the application is assembled.
type Options struct {
	// DryRun keeps records in memory instead of the configured store.
	DryRun bool
	// HTTPClient overrides the transport used by the source fetchers.
	HTTPClient *http.Client
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *scanner.Registry
	stores   ports.StoreProvider
	batch    *usecase.Batch
	metrics  *prometheus.Registry
}

// New builds the source registry, opens storage and assembles the batch.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging)
	}

	registry, err := parser.BuildRegistry(cfg.Sources, parser.RegistryOptions{
		HTTP:     cfg.HTTP,
		Location: cfg.Crawl.Location(),
		Client:   opts.HTTPClient,
		Logger:   baseLogger.With("component", "registry"),
	})
	if err != nil {
		return nil, fmt.Errorf("build sources: %w", err)
	}

	storageCfg := cfg.Storage
	if opts.DryRun {
		storageCfg.Driver = config.DriverMemory
	}
	stores, err := storage.Open(ctx, storageCfg, registry.IDs(), cfg.Crawl.Concurrency, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	crawler := usecase.NewCrawler(usecase.CrawlerDeps{
		Stores:           stores,
		Recorder:         metrics.NewRecorder(promRegistry),
		Logger:           baseLogger,
		MaxPages:         cfg.Crawl.MaxPages,
		MaxFetchFailures: cfg.Crawl.MaxFetchFailures,
	})

	deps := usecase.BatchDeps{
		Crawler:     crawler,
		Registry:    registry,
		Concurrency: cfg.Crawl.Concurrency,
		Logger:      baseLogger,
	}
	if notifier := telegram.NewNotifier(cfg.Notifications.Telegram); notifier != nil {
		deps.Notifier = notifier
	}

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		registry: registry,
		stores:   stores,
		batch:    usecase.NewBatch(deps),
		metrics:  promRegistry,
	}, nil
}

// SourceIDs lists the enabled sources.
func (a *Application) SourceIDs() []string {
	return a.registry.IDs()
}

// RunOne crawls one source; the error is non-nil only for unrecovered failures.
func (a *Application) RunOne(ctx context.Context, id string) (domain.RunSummary, error) {
	return a.batch.RunOne(ctx, id)
}

// RunAll crawls every enabled source concurrently.
func (a *Application) RunAll(ctx context.Context) []domain.RunSummary {
	return a.batch.RunAll(ctx)
}

// Run crawls the named sources concurrently.
func (a *Application) Run(ctx context.Context, ids []string) ([]domain.RunSummary, error) {
	return a.batch.Run(ctx, ids)
}

// Schedule runs all sources on the configured cron expression and serves /metrics
// until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Crawl.Location(), a.logger)
	sched := usecase.NewScheduler(driver, a.batch)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.metrics))
	srv := &http.Server{
		Addr:              a.cfg.Scheduler.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	if srv.Addr != "" {
		go func() {
			a.logger.Info("metrics listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	if err := sched.Start(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("start scheduler: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		runErr = fmt.Errorf("metrics server: %w", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("metrics shutdown", "error", err)
	}
	return runErr
}

// Close releases storage connections.
func (a *Application) Close(ctx context.Context) error {
	if a.stores == nil {
		return nil
	}
	return a.stores.Close(ctx)
}
