package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"NewsCrawler/internal/domain"
)

// Source captures one news portal: how to request a page, how to read it and how to page through it.
// Pages are expected newest first; the crawler stops at the first known record.
type Source interface {
	ID() string
	Policy() domain.StopPolicy
	// Start returns the first cursor of a run.
	Start(now time.Time) domain.Cursor
	// Next returns the cursor after cur. pageEmpty reports that cur yielded no records.
	// ok=false ends the run.
	Next(cur domain.Cursor, pageEmpty bool) (next domain.Cursor, ok bool)
	// FetchPage issues one request; failures are *domain.FetchError.
	FetchPage(ctx context.Context, cur domain.Cursor) ([]byte, error)
	// ParsePage is pure; malformed payloads are *domain.ParseError.
	ParsePage(payload []byte, now time.Time) ([]domain.Record, error)
}

// Registry keeps a mapping from source identifiers to their adapters.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]Source{}}
}

// Register adds or replaces a source adapter.
func (r *Registry) Register(source Source) {
	if r.sources == nil {
		r.sources = map[string]Source{}
	}
	r.sources[source.ID()] = source
}

// Resolve returns a source by identifier or an error if it is absent.
func (r *Registry) Resolve(id string) (Source, error) {
	if source, ok := r.sources[id]; ok {
		return source, nil
	}
	return nil, fmt.Errorf("source %s: %w", id, domain.ErrUnknownSource)
}

// IDs lists registered identifiers in a stable order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every registered source ordered by identifier.
func (r *Registry) All() []Source {
	ids := r.IDs()
	out := make([]Source, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.sources[id])
	}
	return out
}
