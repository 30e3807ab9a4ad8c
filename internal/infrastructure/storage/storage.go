package storage

import (
	"context"
	"fmt"
	"log/slog"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/ports"
)

const collectionPrefix = "raw_"

// CollectionName maps a source identifier to its collection (or table), e.g. raw_G1.
func CollectionName(sourceID string) string {
	return collectionPrefix + sourceID
}

// Open connects the configured backend and prepares the collections of sourceIDs.
// poolSize bounds concurrent connections and normally equals the crawl concurrency.
func Open(ctx context.Context, cfg config.StorageConfig, sourceIDs []string, poolSize int, log *slog.Logger) (ports.StoreProvider, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		store, err := OpenMongo(ctx, cfg.MongoURI, cfg.Database, poolSize)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx, sourceIDs); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		log.Info("storage ready", "driver", cfg.Driver, "database", cfg.Database)
		return store, nil
	case config.DriverPostgres:
		store, err := OpenPostgres(ctx, cfg.DSN, poolSize)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx, sourceIDs); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		log.Info("storage ready", "driver", cfg.Driver)
		return store, nil
	case config.DriverMemory:
		log.Warn("using in-memory storage, records are discarded on exit")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
