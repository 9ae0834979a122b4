package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	pagesFetched  *prometheus.CounterVec
	itemsFetched  *prometheus.CounterVec
	retriesTotal  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		pagesFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streetpull_pages_fetched_total",
				Help: "Total number of headline pages fetched from the vendor",
			},
			[]string{"symbol"},
		),
		itemsFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streetpull_news_items_total",
				Help: "Total number of deduplicated news items fetched",
			},
			[]string{"symbol"},
		),
		retriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streetpull_retries_total",
				Help: "Total number of page request retries",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streetpull_errors_total",
				Help: "Total number of fetch errors by kind",
			},
			[]string{"type"},
		),
		fetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "streetpull_ticker_fetch_duration_seconds",
				Help:    "Duration of a full per-ticker fetch in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
	}
}

// RecordPageFetched records one successfully fetched page.
func (r *Recorder) RecordPageFetched(symbol string) {
	r.pagesFetched.WithLabelValues(symbol).Inc()
}

// RecordItems records the deduplicated item count of a completed fetch.
func (r *Recorder) RecordItems(symbol string, n int) {
	r.itemsFetched.WithLabelValues(symbol).Add(float64(n))
}

// RecordRetry records a page request retry.
func (r *Recorder) RecordRetry(symbol string) {
	r.retriesTotal.WithLabelValues(symbol).Inc()
}

// RecordError records a fetch error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordFetchDuration records the wall time of a per-ticker fetch.
func (r *Recorder) RecordFetchDuration(symbol string, seconds float64) {
	r.fetchDuration.WithLabelValues(symbol).Observe(seconds)
}
