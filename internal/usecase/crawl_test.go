package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/infrastructure/storage"
	"NewsCrawler/internal/logging"
	"NewsCrawler/internal/ports"
)

func newTestCrawler(stores ports.StoreProvider, recorder ports.RunRecorder) *Crawler {
	return NewCrawler(CrawlerDeps{
		Stores:   stores,
		Recorder: recorder,
		Logger:   logging.Discard(),
		Clock:    fixedClock,
	})
}

func seed(t *testing.T, store ports.StoreProvider, id string, records ...domain.Record) {
	t.Helper()
	coll, err := store.Collection(id)
	require.NoError(t, err)
	for _, r := range records {
		_, err := coll.Insert(context.Background(), r)
		require.NoError(t, err)
	}
}

func TestCrawlerStopsAtWatermark(t *testing.T) {
	t.Parallel()

	w := fixedAt.Add(-24 * time.Hour)
	store := storage.NewMemoryStore()
	seed(t, store, "CNN", rec("seed", w))

	src := newSequentialSource("CNN", domain.StopByTimestamp, map[int]fakePage{
		1: {records: []domain.Record{rec("a", w.Add(3*time.Hour)), rec("b", w.Add(2*time.Hour))}},
		2: {records: []domain.Record{rec("c", w.Add(time.Hour)), rec("d", w.Add(-time.Hour)), rec("e", w.Add(5*time.Hour))}},
		3: {records: []domain.Record{rec("f", w.Add(10*time.Hour))}},
	})

	recorder := &recorderStub{}
	summary := newTestCrawler(store, recorder).Run(context.Background(), src)

	require.NoError(t, summary.Err)
	assert.Equal(t, domain.StopWatermark, summary.StopReason)
	assert.Equal(t, 3, summary.Inserted)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 2, summary.Pages)
	assert.True(t, w.Equal(summary.Watermark))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, []string{"/1", "/2"}, src.Fetched(), "pages after the stop are never requested")

	titles := []string{}
	for _, r := range store.Records("CNN") {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"seed", "a", "b", "c"}, titles)
	require.Len(t, recorder.runs, 1)
	assert.Equal(t, "CNN", recorder.runs[0].SourceID)
}

func TestCrawlerBootstrapThenIdempotent(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	pages := map[int]fakePage{
		1: {records: []domain.Record{rec("a", fixedAt.Add(-time.Hour)), rec("b", fixedAt.Add(-2*time.Hour))}},
		2: {records: []domain.Record{rec("c", fixedAt.Add(-3*time.Hour))}},
	}
	crawler := newTestCrawler(store, nil)

	first := crawler.Run(context.Background(), newSequentialSource("UOL", domain.StopByTimestamp, pages))
	require.NoError(t, first.Err)
	assert.Equal(t, domain.Floor, first.Watermark)
	assert.Equal(t, 3, first.Inserted)
	assert.Equal(t, domain.StopExhausted, first.StopReason)
	assert.Equal(t, 3, first.Pages)

	second := crawler.Run(context.Background(), newSequentialSource("UOL", domain.StopByTimestamp, pages))
	require.NoError(t, second.Err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, domain.StopWatermark, second.StopReason)
	assert.Len(t, store.Records("UOL"), 3)
}

func TestCrawlerFetchFailureLooksLikeEmptyPage(t *testing.T) {
	t.Parallel()

	failing := newSequentialSource("G1", domain.StopByTimestamp, map[int]fakePage{
		1: {records: []domain.Record{rec("a", fixedAt.Add(-time.Hour))}},
		2: {fetchErr: true},
		3: {records: []domain.Record{rec("b", fixedAt.Add(-2*time.Hour))}},
	})
	empty := newSequentialSource("G1", domain.StopByTimestamp, map[int]fakePage{
		1: {records: []domain.Record{rec("a", fixedAt.Add(-time.Hour))}},
		3: {records: []domain.Record{rec("b", fixedAt.Add(-2*time.Hour))}},
	})

	failed := newTestCrawler(storage.NewMemoryStore(), nil).Run(context.Background(), failing)
	drained := newTestCrawler(storage.NewMemoryStore(), nil).Run(context.Background(), empty)

	// both terminate after page 2 with the same records stored
	assert.Equal(t, drained.Inserted, failed.Inserted)
	assert.Equal(t, drained.Pages, failed.Pages)
	assert.Equal(t, empty.Fetched(), failing.Fetched())
	assert.NoError(t, failed.Err)

	// only the counters tell them apart
	assert.Equal(t, 1, failed.FetchFailures)
	assert.Equal(t, domain.StopFetchFailed, failed.StopReason)
	assert.Equal(t, 0, drained.FetchFailures)
	assert.Equal(t, domain.StopExhausted, drained.StopReason)
}

func TestCrawlerParseFailure(t *testing.T) {
	t.Parallel()

	src := newSequentialSource("Estadao", domain.StopByTimestamp, map[int]fakePage{
		1: {parseErr: true},
	})
	summary := newTestCrawler(storage.NewMemoryStore(), nil).Run(context.Background(), src)

	assert.NoError(t, summary.Err)
	assert.Equal(t, 1, summary.ParseFailures)
	assert.Equal(t, domain.StopParseFailed, summary.StopReason)
	assert.Zero(t, summary.Inserted)
}

func TestCrawlerCountsInsertFailures(t *testing.T) {
	t.Parallel()

	store := newFlakyStore()
	store.failTitle["b"] = true

	src := newSequentialSource("CNN", domain.StopByTimestamp, map[int]fakePage{
		1: {records: []domain.Record{
			rec("a", fixedAt.Add(-time.Hour)),
			rec("b", fixedAt.Add(-2*time.Hour)),
			rec("c", fixedAt.Add(-3*time.Hour)),
		}},
	})
	summary := newTestCrawler(store, nil).Run(context.Background(), src)

	assert.NoError(t, summary.Err)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, domain.StopExhausted, summary.StopReason)
	assert.True(t, summary.OK(), "insert failures are not fatal")
}

func TestCrawlerTitlePolicy(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	seed(t, store, "MinisterioFake", rec("known", fixedAt.Add(-48*time.Hour)))

	src := newSequentialSource("MinisterioFake", domain.StopByTitle, map[int]fakePage{
		1: {records: []domain.Record{
			rec("n1", fixedAt),
			rec("n2", fixedAt),
			rec("known", fixedAt),
			rec("n3", fixedAt),
		}},
		2: {records: []domain.Record{rec("n4", fixedAt)}},
	})
	summary := newTestCrawler(store, nil).Run(context.Background(), src)

	assert.Equal(t, domain.StopKnownTitle, summary.StopReason)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, []string{"/1"}, src.Fetched())
}

func TestCrawlerReadFailureFallsBackToFloor(t *testing.T) {
	t.Parallel()

	store := newFlakyStore()
	seed(t, store.MemoryStore, "UOL", rec("old", fixedAt.Add(-2*time.Hour)))
	store.readErr = errors.New("connection refused")

	src := newSequentialSource("UOL", domain.StopByTimestamp, map[int]fakePage{
		1: {records: []domain.Record{rec("a", fixedAt.Add(-time.Hour)), rec("old", fixedAt.Add(-2*time.Hour))}},
	})
	summary := newTestCrawler(store, nil).Run(context.Background(), src)

	assert.NoError(t, summary.Err)
	assert.Equal(t, domain.Floor, summary.Watermark)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "connection refused")
	assert.Equal(t, 2, summary.Inserted, "a floor watermark rescans everything")
}

func TestCrawlerTitleLookupFailureStops(t *testing.T) {
	t.Parallel()

	store := newFlakyStore()
	store.titleErr = errors.New("timeout")

	src := newSequentialSource("MinisterioFake", domain.StopByTitle, map[int]fakePage{
		1: {records: []domain.Record{rec("n1", fixedAt), rec("n2", fixedAt)}},
	})
	summary := newTestCrawler(store, nil).Run(context.Background(), src)

	assert.Equal(t, domain.StopReadFailed, summary.StopReason)
	assert.Zero(t, summary.Inserted)
	assert.Equal(t, 2, summary.Skipped)
	assert.Len(t, summary.Warnings, 1)
}

func TestCrawlerCancellationKeepsPageAtomic(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newFlakyStore()
	store.honourCtx = true

	src := newSequentialSource("CNN", domain.StopByTimestamp, map[int]fakePage{
		1: {records: []domain.Record{rec("a", fixedAt.Add(-time.Hour)), rec("b", fixedAt.Add(-2*time.Hour))}},
		2: {records: []domain.Record{rec("c", fixedAt.Add(-3*time.Hour))}},
	})
	src.onFetch = func(cur domain.Cursor) {
		if cur.Page == 1 {
			cancel()
		}
	}

	summary := newTestCrawler(store, nil).Run(ctx, src)

	assert.Equal(t, domain.StopCancelled, summary.StopReason)
	assert.True(t, errors.Is(summary.Err, context.Canceled))
	assert.Equal(t, 2, summary.Inserted, "the page in flight is committed in full")
	assert.Zero(t, summary.Failed)
	assert.Equal(t, []string{"/1"}, src.Fetched())
}

func TestCrawlerDayScan(t *testing.T) {
	t.Parallel()

	day := func(d, h int) time.Time { return time.Date(2021, time.April, d, h, 0, 0, 0, brt) }
	src := newDailySource("G1", day(2, 0), map[string]fakePage{
		"2021-04-04/1": {records: []domain.Record{rec("a", day(4, 10))}},
		"2021-04-03/1": {records: []domain.Record{rec("b", day(3, 20))}},
		"2021-04-03/2": {records: []domain.Record{rec("c", day(3, 10))}},
		"2021-04-03/3": {records: []domain.Record{rec("d", day(3, 8))}},
	})

	summary := newTestCrawler(storage.NewMemoryStore(), nil).Run(context.Background(), src)

	assert.NoError(t, summary.Err)
	assert.Equal(t, 4, summary.Inserted)
	assert.Equal(t, domain.StopExhausted, summary.StopReason)
	assert.Equal(t, []string{
		"2021-04-04/1",
		"2021-04-04/2",
		"2021-04-03/1",
		"2021-04-03/2",
		"2021-04-03/3",
		"2021-04-02/1",
	}, src.Fetched())
}

func TestCrawlerMaxPages(t *testing.T) {
	t.Parallel()

	pages := map[int]fakePage{}
	for i := 1; i <= 5; i++ {
		pages[i] = fakePage{records: []domain.Record{rec(string(rune('a'+i)), fixedAt.Add(-time.Duration(i)*time.Hour))}}
	}
	src := newSequentialSource("CNN", domain.StopByTimestamp, pages)

	crawler := NewCrawler(CrawlerDeps{
		Stores:   storage.NewMemoryStore(),
		Logger:   logging.Discard(),
		Clock:    fixedClock,
		MaxPages: 2,
	})
	summary := crawler.Run(context.Background(), src)

	assert.Equal(t, domain.StopMaxPages, summary.StopReason)
	assert.Equal(t, 2, summary.Pages)
	assert.Equal(t, 2, summary.Inserted)
}

func TestCrawlerDropsInvalidRecords(t *testing.T) {
	t.Parallel()

	src := newSequentialSource("UOL", domain.StopByTimestamp, map[int]fakePage{
		1: {records: []domain.Record{
			{Title: "", Link: "https://example.org/x", PublishedAt: fixedAt},
			{Title: "no date"},
			rec("a", fixedAt.Add(-time.Hour)),
		}},
	})
	summary := newTestCrawler(storage.NewMemoryStore(), nil).Run(context.Background(), src)

	assert.Equal(t, 2, summary.ParseFailures)
	assert.Equal(t, 1, summary.Inserted)
}

func TestCrawlerRecoversPanics(t *testing.T) {
	t.Parallel()

	src := newSequentialSource("FatoFake", domain.StopByTimestamp, map[int]fakePage{
		1: {panics: true},
	})
	recorder := &recorderStub{}
	summary := newTestCrawler(storage.NewMemoryStore(), recorder).Run(context.Background(), src)

	require.Error(t, summary.Err)
	assert.Equal(t, domain.StopAborted, summary.StopReason)
	assert.False(t, summary.OK())
	assert.Len(t, recorder.runs, 1)
}

func TestCrawlerStopsAtTitleRepeatedOnPage(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	src := newSequentialSource("MinisterioFake", domain.StopByTitle, map[int]fakePage{
		1: {records: []domain.Record{
			rec("a", fixedAt), rec("b", fixedAt), rec("a", fixedAt), rec("c", fixedAt),
		}},
	})

	summary := newTestCrawler(store, nil).Run(context.Background(), src)

	assert.Equal(t, domain.StopKnownTitle, summary.StopReason)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 2, summary.Skipped)
	assert.Len(t, store.Records("MinisterioFake"), 2)
}

func TestCrawlerGivesUpAfterConsecutiveFetchFailures(t *testing.T) {
	t.Parallel()

	src := newDailySource("G1", time.Date(2020, time.January, 1, 0, 0, 0, 0, brt), map[string]fakePage{
		"2021-04-04/1": {fetchErr: true},
		"2021-04-03/1": {fetchErr: true},
		"2021-04-02/1": {fetchErr: true},
		"2021-04-01/1": {records: []domain.Record{rec("never", fixedAt)}},
	})

	summary := NewCrawler(CrawlerDeps{
		Stores:           storage.NewMemoryStore(),
		Logger:           logging.Discard(),
		Clock:            fixedClock,
		MaxFetchFailures: 3,
	}).Run(context.Background(), src)

	assert.NoError(t, summary.Err)
	assert.Equal(t, domain.StopFetchFailed, summary.StopReason)
	assert.Equal(t, 3, summary.FetchFailures)
	assert.Equal(t, 0, summary.Inserted)
	assert.Len(t, summary.Warnings, 1)
	assert.Equal(t, []string{"2021-04-04/1", "2021-04-03/1", "2021-04-02/1"}, src.Fetched())
}
