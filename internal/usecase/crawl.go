package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/ports"
	"NewsCrawler/internal/scanner"
)

// CrawlerDeps wires the driven adapters into the crawl controller.
type CrawlerDeps struct {
	Stores   ports.StoreProvider
	Recorder ports.RunRecorder
	Logger   *slog.Logger
	// MaxPages bounds the pages fetched by one run; zero means unbounded.
	MaxPages int
	// MaxFetchFailures ends a run after that many consecutive failed fetches; zero means never.
	MaxFetchFailures int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Crawler runs one source incrementally: it walks pages newest first and stops at the
// first record it already knows.
type Crawler struct {
	stores   ports.StoreProvider
	recorder ports.RunRecorder
	logger   *slog.Logger
	maxPages int
	maxFails int
	clock    func() time.Time
	validate *validator.Validate
}

// NewCrawler constructs the controller.
func NewCrawler(deps CrawlerDeps) *Crawler {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		stores:   deps.Stores,
		recorder: deps.Recorder,
		logger:   logger.With("component", "crawler"),
		maxPages: deps.MaxPages,
		maxFails: deps.MaxFetchFailures,
		clock:    clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type crawlState int

const (
	stateInit crawlState = iota
	stateFetching
	stateParsing
	stateFiltering
	statePersisting
	stateAdvancing
	stateDone
)

// crawlRun is the mutable state of a single run. It never outlives Run.
type crawlRun struct {
	*Crawler
	source    scanner.Source
	store     ports.RecordStore
	log       *slog.Logger
	summary   domain.RunSummary
	watermark time.Time

	cur         domain.Cursor
	payload     []byte
	records     []domain.Record
	accepted    []domain.Record
	pageEmpty   bool
	pageFailure domain.StopReason
	fetchStreak int
	halt        domain.StopReason
}

// Run crawls source until a stop condition is met. Failures are reported in the summary;
// Err is set only when the run could not proceed at all.
func (c *Crawler) Run(ctx context.Context, source scanner.Source) (summary domain.RunSummary) {
	started := c.clock()
	r := &crawlRun{
		Crawler: c,
		source:  source,
		summary: domain.RunSummary{RunID: uuid.NewString(), SourceID: source.ID()},
	}
	r.log = c.logger.With("source", source.ID(), "run_id", r.summary.RunID)

	defer func() {
		if p := recover(); p != nil {
			r.summary.Err = fmt.Errorf("source %s panicked: %v", source.ID(), p)
			r.summary.StopReason = domain.StopAborted
			r.log.Error("run panicked", "panic", p)
		}
		r.summary.Elapsed = c.clock().Sub(started)
		summary = r.summary
		r.finish()
	}()

	state := stateInit
	for state != stateDone {
		switch state {
		case stateInit:
			state = r.init(ctx)
		case stateFetching:
			state = r.fetch(ctx)
		case stateParsing:
			state = r.parse()
		case stateFiltering:
			state = r.filter(ctx)
		case statePersisting:
			state = r.persist(ctx)
		case stateAdvancing:
			state = r.advance()
		}
	}

	return r.summary
}

func (r *crawlRun) init(ctx context.Context) crawlState {
	if r.stores == nil {
		return r.abort(errors.New("no storage configured"))
	}
	store, err := r.stores.Collection(r.source.ID())
	if err != nil {
		return r.abort(fmt.Errorf("open collection: %w", err))
	}
	r.store = store

	r.watermark = domain.Floor
	if r.source.Policy() == domain.StopByTimestamp {
		wm, err := store.MostRecentTimestamp(ctx)
		if err != nil {
			r.warn("watermark unavailable, crawling from floor", err)
		} else {
			r.watermark = wm
		}
	}
	r.summary.Watermark = r.watermark

	r.cur = r.source.Start(r.clock())
	r.log.Info("run started", "policy", r.source.Policy(), "watermark", r.watermark, "page", r.cur.Page)
	return stateFetching
}

func (r *crawlRun) fetch(ctx context.Context) crawlState {
	if err := ctx.Err(); err != nil {
		r.summary.Err = err
		r.summary.StopReason = domain.StopCancelled
		return stateDone
	}
	if r.maxPages > 0 && r.summary.Pages >= r.maxPages {
		r.summary.StopReason = domain.StopMaxPages
		return stateDone
	}

	r.summary.Pages++
	payload, err := r.source.FetchPage(ctx, r.cur)
	if err != nil {
		if ctx.Err() != nil {
			r.summary.Err = ctx.Err()
			r.summary.StopReason = domain.StopCancelled
			return stateDone
		}
		r.summary.FetchFailures++
		r.fetchStreak++
		r.pageFailure = domain.StopFetchFailed
		r.log.Warn("fetch failed", "page", r.cur.Page, "day", dayLabel(r.cur), "error", err)
		if r.maxFails > 0 && r.fetchStreak >= r.maxFails {
			r.warn("giving up", fmt.Errorf("%d consecutive fetch failures: %w", r.fetchStreak, err))
			r.summary.StopReason = domain.StopFetchFailed
			return stateDone
		}
		r.records = nil
		return stateFiltering
	}

	r.fetchStreak = 0
	r.payload = payload
	return stateParsing
}

func (r *crawlRun) parse() crawlState {
	records, err := r.source.ParsePage(r.payload, r.clock())
	r.payload = nil
	if err != nil {
		r.summary.ParseFailures++
		r.pageFailure = domain.StopParseFailed
		r.log.Warn("parse failed", "page", r.cur.Page, "day", dayLabel(r.cur), "error", err)
		r.records = nil
		return stateFiltering
	}
	r.records = records
	return stateFiltering
}

// filter keeps the leading run of unknown records. The first known record ends the run and
// everything from it onward is counted as skipped.
func (r *crawlRun) filter(ctx context.Context) crawlState {
	if len(r.records) == 0 {
		r.pageEmpty = true
		return stateAdvancing
	}

	// reads that decide what a page commits are not interrupted half way
	pageCtx := context.WithoutCancel(ctx)

	seen := make(map[string]struct{}, len(r.records))
	for i, rec := range r.records {
		if err := r.validate.Struct(rec); err != nil {
			r.summary.ParseFailures++
			r.log.Debug("record dropped", "title", rec.Title, "error", err)
			continue
		}

		// stores keep millisecond precision
		rec.PublishedAt = rec.PublishedAt.Truncate(time.Millisecond)

		byTitle := r.source.Policy() == domain.StopByTitle || rec.Approximate
		if byTitle {
			if _, dup := seen[rec.Title]; dup {
				return r.stopAt(i, domain.StopKnownTitle)
			}
		}

		switch {
		case byTitle:
			if r.source.Policy() != domain.StopByTitle && rec.PublishedAt.Before(r.watermark) {
				return r.stopAt(i, domain.StopWatermark)
			}
			if next, stop := r.checkTitle(pageCtx, i, rec, domain.StopKnownTitle); stop {
				return next
			}
		case rec.PublishedAt.Before(r.watermark):
			return r.stopAt(i, domain.StopWatermark)
		case rec.PublishedAt.Equal(r.watermark):
			// the newest stored record shares the watermark; only its title tells it apart
			if next, stop := r.checkTitle(pageCtx, i, rec, domain.StopWatermark); stop {
				return next
			}
		}

		seen[rec.Title] = struct{}{}
		r.accepted = append(r.accepted, rec)
	}

	return statePersisting
}

// checkTitle stops the run at record i when its title is already stored or cannot be looked up.
func (r *crawlRun) checkTitle(ctx context.Context, i int, rec domain.Record, reason domain.StopReason) (crawlState, bool) {
	exists, err := r.store.ExistsByTitle(ctx, rec.Title)
	if err != nil {
		r.warn("title lookup failed, stopping", err)
		return r.stopAt(i, domain.StopReadFailed), true
	}
	if exists {
		return r.stopAt(i, reason), true
	}
	return 0, false
}

func (r *crawlRun) stopAt(i int, reason domain.StopReason) crawlState {
	r.summary.Skipped += len(r.records) - i
	r.halt = reason
	return statePersisting
}

// persist commits the accepted records of the page even if ctx is cancelled meanwhile.
func (r *crawlRun) persist(ctx context.Context) crawlState {
	writeCtx := context.WithoutCancel(ctx)
	for _, rec := range r.accepted {
		id, err := r.store.Insert(writeCtx, rec)
		if err != nil {
			r.summary.Failed++
			r.log.Warn("insert failed", "title", rec.Title, "error", err)
			continue
		}
		r.summary.Inserted++
		r.log.Debug("record inserted", "id", id, "published_at", rec.PublishedAt.Format(time.RFC3339))
	}
	r.accepted = r.accepted[:0]

	if r.halt != "" {
		r.summary.StopReason = r.halt
		return stateDone
	}
	return stateAdvancing
}

func (r *crawlRun) advance() crawlState {
	next, ok := r.source.Next(r.cur, r.pageEmpty)
	if !ok {
		r.summary.StopReason = domain.StopExhausted
		if r.pageEmpty && r.pageFailure != "" {
			r.summary.StopReason = r.pageFailure
		}
		return stateDone
	}

	r.cur = next
	r.records = nil
	r.pageEmpty = false
	r.pageFailure = ""
	return stateFetching
}

func (r *crawlRun) abort(err error) crawlState {
	r.summary.Err = err
	r.summary.StopReason = domain.StopAborted
	return stateDone
}

func (r *crawlRun) warn(msg string, err error) {
	r.summary.Warnings = append(r.summary.Warnings, fmt.Sprintf("%s: %v", msg, err))
	r.log.Warn(msg, "error", err)
}

func (r *crawlRun) finish() {
	s := r.summary
	attrs := []any{
		"stop_reason", s.StopReason,
		"inserted", s.Inserted,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"fetch_failures", s.FetchFailures,
		"parse_failures", s.ParseFailures,
		"pages", s.Pages,
		"elapsed", s.Elapsed,
	}
	if s.Err != nil {
		r.log.Error("run failed", append(attrs, "error", s.Err)...)
	} else {
		r.log.Info("run finished", attrs...)
	}

	if r.recorder != nil {
		r.recorder.ObserveRun(s)
	}
}

func dayLabel(cur domain.Cursor) string {
	if cur.Day.IsZero() {
		return ""
	}
	return cur.Day.Format("2006-01-02")
}
