// Package metrics exposes crawl run outcomes to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/ports"
)

const namespace = "newscrawler"

// Recorder turns run summaries into counters and gauges.
type Recorder struct {
	runs          *prometheus.CounterVec
	records       *prometheus.CounterVec
	pageFailures  *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	watermark     *prometheus.GaugeVec
	lastRunStatus *prometheus.GaugeVec
}

var _ ports.RunRecorder = (*Recorder)(nil)

// NewRecorder registers the crawl metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished source runs by stop reason.",
		}, []string{"source", "stop_reason"}),
		records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records seen by outcome (inserted, skipped, failed).",
		}, []string{"source", "outcome"}),
		pageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_failures_total",
			Help:      "Pages that could not be fetched or parsed.",
		}, []string{"source", "kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a source run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 900, 1800},
		}, []string{"source"}),
		watermark: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_timestamp_seconds",
			Help:      "Watermark read at the start of the last run.",
		}, []string{"source"}),
		lastRunStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run ended without an unrecovered error.",
		}, []string{"source"}),
	}
}

// ObserveRun implements ports.RunRecorder.
func (r *Recorder) ObserveRun(s domain.RunSummary) {
	src := s.SourceID
	r.runs.WithLabelValues(src, string(s.StopReason)).Inc()
	r.records.WithLabelValues(src, "inserted").Add(float64(s.Inserted))
	r.records.WithLabelValues(src, "skipped").Add(float64(s.Skipped))
	r.records.WithLabelValues(src, "failed").Add(float64(s.Failed))
	r.pageFailures.WithLabelValues(src, "fetch").Add(float64(s.FetchFailures))
	r.pageFailures.WithLabelValues(src, "parse").Add(float64(s.ParseFailures))
	r.duration.WithLabelValues(src).Observe(s.Elapsed.Seconds())
	if !s.Watermark.IsZero() {
		r.watermark.WithLabelValues(src).Set(float64(s.Watermark.Unix()))
	}

	status := 0.0
	if s.OK() {
		status = 1
	}
	r.lastRunStatus.WithLabelValues(src).Set(status)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
