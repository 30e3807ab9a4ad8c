package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/ports"
)

// MemoryStore is a process-local backend for dry runs and tests.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*MemoryCollection
}

var _ ports.StoreProvider = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]*MemoryCollection{}}
}

func (s *MemoryStore) Collection(sourceID string) (ports.RecordStore, error) {
	return s.collection(sourceID), nil
}

// Records returns a copy of what was stored for a source, in insertion order.
func (s *MemoryStore) Records(sourceID string) []domain.Record {
	return s.collection(sourceID).Records()
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) collection(sourceID string) *MemoryCollection {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[sourceID]
	if !ok {
		c = &MemoryCollection{}
		s.collections[sourceID] = c
	}
	return c
}

// MemoryCollection holds the records of one source.
type MemoryCollection struct {
	mu      sync.RWMutex
	records []domain.Record
}

func (c *MemoryCollection) Insert(_ context.Context, record domain.Record) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
	return uuid.NewString(), nil
}

func (c *MemoryCollection) MostRecentTimestamp(context.Context) (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	latest := domain.Floor
	for _, r := range c.records {
		if r.PublishedAt.After(latest) {
			latest = r.PublishedAt
		}
	}
	return latest, nil
}

func (c *MemoryCollection) ExistsByTitle(_ context.Context, title string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.records {
		if r.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (c *MemoryCollection) Records() []domain.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Record, len(c.records))
	copy(out, c.records)
	return out
}
