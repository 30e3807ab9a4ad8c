package parser

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/scanner"
)

// DefaultOldest bounds day-by-day scans when a source sets no oldestDate.
const DefaultOldest = "2020-01-01"

// RegistryOptions carries what every adapter shares.
type RegistryOptions struct {
	HTTP     config.HTTPConfig
	Location *time.Location
	// Client overrides the transport, mostly for tests.
	Client *http.Client
	Logger *slog.Logger
}

// BuildRegistry turns enabled source settings into adapters. Each source gets its own
// fetcher so rate limits apply per portal.
func BuildRegistry(sources []config.SourceConfig, opts RegistryOptions) (*scanner.Registry, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	defaultOldest, _ := time.ParseInLocation("2006-01-02", DefaultOldest, loc)

	reg := scanner.NewRegistry()
	for _, src := range sources {
		if !src.IsEnabled() {
			debug(opts.Logger, "source disabled", "source", src.Name)
			continue
		}
		if src.Name == "" {
			return nil, fmt.Errorf("source with adapter %q has no name", src.Adapter)
		}
		if src.Endpoint == "" {
			return nil, fmt.Errorf("source %s: endpoint is empty", src.Name)
		}

		fetcher := NewFetcher(opts.HTTP, opts.Client)

		var source scanner.Source
		switch strings.ToLower(src.Adapter) {
		case config.AdapterCNN:
			source = NewCNNSource(src, fetcher)
		case config.AdapterEstadao:
			source = NewEstadaoSource(src, fetcher, loc)
		case config.AdapterUOL:
			source = NewUOLSource(src, fetcher, loc)
		case config.AdapterG1:
			source = NewG1Source(src, fetcher, loc, src.Oldest(loc, defaultOldest))
		case config.AdapterFatoFake:
			if strings.Count(src.Endpoint, "%d") != 1 {
				return nil, fmt.Errorf("source %s: endpoint must contain one %%d page placeholder", src.Name)
			}
			source = NewFatoFakeSource(src, fetcher)
		case config.AdapterMinisterio:
			source = NewMinisterioSource(src, fetcher)
		default:
			return nil, fmt.Errorf("source %s: unknown adapter %q", src.Name, src.Adapter)
		}

		reg.Register(source)
		debug(opts.Logger, "source registered", "source", src.Name, "adapter", src.Adapter)
	}

	return reg, nil
}

func debug(logger *slog.Logger, msg string, args ...interface{}) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}
