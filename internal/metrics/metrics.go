// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerPagesTotal           *prometheus.CounterVec
	crawlerDocumentsTotal       *prometheus.CounterVec
	crawlerFrontierClaimsTotal  *prometheus.CounterVec
	crawlerFetchDurationSeconds prometheus.Histogram
	crawlerActiveWorkers        prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of frontier items processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlerDocumentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_documents_total",
				Help: "Total number of document upserts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlerFrontierClaimsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_frontier_claims_total",
				Help: "Total number of frontier claim attempts, labeled by result.",
			},
			[]string{"result"},
		)

		crawlerFetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of workers currently processing an item.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the processed page counter for the given outcome.
func ObservePage(outcome string) {
	crawlerPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDocument increments the document upsert counter for the given outcome.
func ObserveDocument(outcome string) {
	crawlerDocumentsTotal.WithLabelValues(outcome).Inc()
}

// ObserveClaim increments the frontier claim counter for the given result.
func ObserveClaim(result string) {
	crawlerFrontierClaimsTotal.WithLabelValues(result).Inc()
}

// ObserveFetchDuration records the duration of a page fetch.
func ObserveFetchDuration(duration time.Duration) {
	crawlerFetchDurationSeconds.Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	crawlerActiveWorkers.Dec()
}
