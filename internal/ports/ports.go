package ports

import (
	"context"
	"time"

	"NewsCrawler/internal/domain"
)

// RecordStore is the per-source collection the crawler appends to.
type RecordStore interface {
	Insert(ctx context.Context, record domain.Record) (string, error)
	// MostRecentTimestamp returns domain.Floor when the collection is empty.
	MostRecentTimestamp(ctx context.Context) (time.Time, error)
	ExistsByTitle(ctx context.Context, title string) (bool, error)
}

// StoreProvider hands out one RecordStore per source.
type StoreProvider interface {
	Collection(sourceID string) (RecordStore, error)
	Close(ctx context.Context) error
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// RunRecorder observes finished runs (metrics, audit).
type RunRecorder interface {
	ObserveRun(summary domain.RunSummary)
}

// Scheduler controls when batches execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
