package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/infrastructure/storage"
	"NewsCrawler/internal/ports"
	"NewsCrawler/internal/scanner"
)

var (
	brt     = time.FixedZone("BRT", -3*60*60)
	fixedAt = time.Date(2021, time.April, 4, 12, 0, 0, 0, brt)
)

func fixedClock() time.Time { return fixedAt }

type fakePage struct {
	records  []domain.Record
	fetchErr bool
	parseErr bool
	panics   bool
}

// fakeSource serves scripted pages keyed by "day/page". Missing pages are empty.
type fakeSource struct {
	id     string
	policy domain.StopPolicy
	pages  map[string]fakePage
	// onFetch runs after each successful fetch.
	onFetch func(cur domain.Cursor)

	mu      sync.Mutex
	fetched []string
}

type sequentialFake struct {
	scanner.SequentialPaging
	*fakeSource
}

type dailyFake struct {
	scanner.DailyPaging
	*fakeSource
}

func newSequentialSource(id string, policy domain.StopPolicy, pages map[int]fakePage) *sequentialFake {
	keyed := make(map[string]fakePage, len(pages))
	for n, p := range pages {
		keyed[pageKey(domain.Cursor{Page: n})] = p
	}
	return &sequentialFake{
		SequentialPaging: scanner.SequentialPaging{First: 1},
		fakeSource:       &fakeSource{id: id, policy: policy, pages: keyed},
	}
}

func newDailySource(id string, oldest time.Time, pages map[string]fakePage) *dailyFake {
	return &dailyFake{
		DailyPaging: scanner.DailyPaging{MaxPage: 3, Oldest: oldest, Location: brt},
		fakeSource:  &fakeSource{id: id, policy: domain.StopByTimestamp, pages: pages},
	}
}

func pageKey(cur domain.Cursor) string {
	return fmt.Sprintf("%s/%d", dayLabel(cur), cur.Page)
}

func (s *fakeSource) ID() string                { return s.id }
func (s *fakeSource) Policy() domain.StopPolicy { return s.policy }

func (s *fakeSource) FetchPage(_ context.Context, cur domain.Cursor) ([]byte, error) {
	key := pageKey(cur)
	s.mu.Lock()
	s.fetched = append(s.fetched, key)
	s.mu.Unlock()

	if s.pages[key].fetchErr {
		return nil, &domain.FetchError{Source: s.id, URL: key, StatusCode: 503}
	}
	if s.onFetch != nil {
		s.onFetch(cur)
	}
	return []byte(key), nil
}

func (s *fakeSource) ParsePage(payload []byte, _ time.Time) ([]domain.Record, error) {
	page := s.pages[string(payload)]
	if page.panics {
		panic("unexpected markup")
	}
	if page.parseErr {
		return nil, &domain.ParseError{Source: s.id, Err: errors.New("broken markup")}
	}
	return page.records, nil
}

func (s *fakeSource) Fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

func rec(title string, at time.Time) domain.Record {
	return domain.Record{Title: title, Link: "https://example.org/" + strings.ReplaceAll(title, " ", "-"), PublishedAt: at}
}

// flakyStore wraps a memory collection with injectable failures.
type flakyStore struct {
	*storage.MemoryStore
	readErr   error
	titleErr  error
	failTitle map[string]bool
	// honourCtx makes inserts fail on a cancelled context.
	honourCtx bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: storage.NewMemoryStore(), failTitle: map[string]bool{}}
}

func (s *flakyStore) Collection(id string) (ports.RecordStore, error) {
	inner, err := s.MemoryStore.Collection(id)
	if err != nil {
		return nil, err
	}
	return &flakyCollection{RecordStore: inner, store: s}, nil
}

type flakyCollection struct {
	ports.RecordStore
	store *flakyStore
}

func (c *flakyCollection) Insert(ctx context.Context, r domain.Record) (string, error) {
	if c.store.honourCtx && ctx.Err() != nil {
		return "", &domain.StorageError{Op: domain.StorageWrite, Collection: "test", Err: ctx.Err()}
	}
	if c.store.failTitle[r.Title] {
		return "", &domain.StorageError{Op: domain.StorageWrite, Collection: "test", Err: errors.New("rejected")}
	}
	return c.RecordStore.Insert(ctx, r)
}

func (c *flakyCollection) MostRecentTimestamp(ctx context.Context) (time.Time, error) {
	if c.store.readErr != nil {
		return domain.Floor, &domain.StorageError{Op: domain.StorageRead, Collection: "test", Err: c.store.readErr}
	}
	return c.RecordStore.MostRecentTimestamp(ctx)
}

func (c *flakyCollection) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	if c.store.titleErr != nil {
		return false, &domain.StorageError{Op: domain.StorageRead, Collection: "test", Err: c.store.titleErr}
	}
	return c.RecordStore.ExistsByTitle(ctx, title)
}

type recorderStub struct {
	mu   sync.Mutex
	runs []domain.RunSummary
}

func (r *recorderStub) ObserveRun(s domain.RunSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, s)
}

type notifierStub struct {
	mu      sync.Mutex
	digests []string
}

func (n *notifierStub) PublishDigest(_ context.Context, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.digests = append(n.digests, digest)
	return nil
}
