package domain

import "time"

// StopReason explains why a run reached its terminal state.
type StopReason string

const (
	StopWatermark   StopReason = "watermark"
	StopExhausted   StopReason = "exhausted"
	StopFetchFailed StopReason = "fetch_failed"
	StopParseFailed StopReason = "parse_failed"
	StopMaxPages    StopReason = "max_pages"
	StopReadFailed  StopReason = "read_failed"
	StopCancelled   StopReason = "cancelled"
	StopKnownTitle  StopReason = "known_title"
	StopAborted     StopReason = "aborted"
)

// RunSummary is reported once per source run.
type RunSummary struct {
	RunID         string
	SourceID      string
	Inserted      int
	Skipped       int
	Failed        int
	FetchFailures int
	ParseFailures int
	Pages         int
	Watermark     time.Time
	StopReason    StopReason
	Warnings      []string
	Elapsed       time.Duration
	// Err is set only for unrecovered failures; per-record problems are counted above.
	Err error
}

// OK reports whether the run ended without an unrecovered error.
func (s RunSummary) OK() bool {
	return s.Err == nil
}
