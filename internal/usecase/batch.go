package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/ports"
	"NewsCrawler/internal/scanner"
)

// BatchDeps wires a batch over the registered sources.
type BatchDeps struct {
	Crawler     *Crawler
	Registry    *scanner.Registry
	Notifier    ports.Notifier
	Concurrency int
	Logger      *slog.Logger
}

// Batch runs several sources side by side. Sources share nothing but the store pool,
// so a failure in one never blocks the others.
type Batch struct {
	crawler     *Crawler
	registry    *scanner.Registry
	notifier    ports.Notifier
	concurrency int
	logger      *slog.Logger
}

func NewBatch(deps BatchDeps) *Batch {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{
		crawler:     deps.Crawler,
		registry:    deps.Registry,
		notifier:    deps.Notifier,
		concurrency: concurrency,
		logger:      logger.With("component", "batch"),
	}
}

// RunOne crawls a single source. The returned error mirrors summary.Err, or reports an
// unknown source.
func (b *Batch) RunOne(ctx context.Context, id string) (domain.RunSummary, error) {
	source, err := b.registry.Resolve(id)
	if err != nil {
		return domain.RunSummary{SourceID: id, StopReason: domain.StopAborted, Err: err}, err
	}
	summary := b.crawler.Run(ctx, source)
	b.notify(ctx, []domain.RunSummary{summary})
	return summary, summary.Err
}

// RunAll crawls every registered source.
func (b *Batch) RunAll(ctx context.Context) []domain.RunSummary {
	summaries := b.run(ctx, b.registry.All())
	b.notify(ctx, summaries)
	return summaries
}

// Run crawls the named sources. Unknown identifiers fail before any crawl starts.
func (b *Batch) Run(ctx context.Context, ids []string) ([]domain.RunSummary, error) {
	sources := make([]scanner.Source, 0, len(ids))
	for _, id := range ids {
		source, err := b.registry.Resolve(id)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	summaries := b.run(ctx, sources)
	b.notify(ctx, summaries)
	return summaries, nil
}

func (b *Batch) run(ctx context.Context, sources []scanner.Source) []domain.RunSummary {
	summaries := make([]domain.RunSummary, len(sources))

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			summaries[i] = b.runSafe(ctx, source)
			return nil
		})
	}
	_ = g.Wait()

	b.logger.Info("batch finished", "sources", len(sources), "failed", countFailed(summaries))
	return summaries
}

// runSafe guards the batch against panics that escape the crawler itself.
func (b *Batch) runSafe(ctx context.Context, source scanner.Source) (summary domain.RunSummary) {
	defer func() {
		if p := recover(); p != nil {
			summary = domain.RunSummary{
				SourceID:   source.ID(),
				StopReason: domain.StopAborted,
				Err:        fmt.Errorf("source %s panicked: %v", source.ID(), p),
			}
			b.logger.Error("source panicked", "source", source.ID(), "panic", p)
		}
	}()
	return b.crawler.Run(ctx, source)
}

func (b *Batch) notify(ctx context.Context, summaries []domain.RunSummary) {
	if b.notifier == nil || len(summaries) == 0 {
		return
	}
	if err := b.notifier.PublishDigest(context.WithoutCancel(ctx), BuildDigest(summaries)); err != nil {
		b.logger.Warn("publish digest failed", "error", err)
	}
}

func countFailed(summaries []domain.RunSummary) int {
	n := 0
	for _, s := range summaries {
		if !s.OK() {
			n++
		}
	}
	return n
}
