// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvsizer_requests_total",
			Help: "Total number of API requests per path and status code",
		},
		[]string{"path", "code"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pvsizer_request_duration_seconds",
			Help:    "API request duration in seconds per path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	ReadingsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pvsizer_readings_ingested_total",
			Help: "Total number of readings accepted from uploaded files",
		},
	)

	ReadingsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pvsizer_readings_dropped_total",
			Help: "Total number of rows dropped while parsing uploaded files",
		},
	)

	SizingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvsizer_sizings_total",
			Help: "Total number of sizing runs per outcome",
		},
		[]string{"outcome"},
	)

	PVArraySizeKW = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pvsizer_pv_array_size_kw",
			Help:    "Recommended PV array size in kW",
			Buckets: []float64{1, 2, 3, 5, 6, 8, 10, 12, 15, 20, 30},
		},
	)

	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pvsizer_live_sessions",
			Help: "Number of connected live sessions",
		},
	)

	PriceFetchLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pvsizer_price_fetch_last_run_timestamp",
			Help: "Unix timestamp of the last price fetch per provider",
		},
		[]string{"provider"},
	)

	PriceFetchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvsizer_price_fetch_failures_total",
			Help: "Total number of failed price fetches per provider",
		},
		[]string{"provider"},
	)
)

// Sizing outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeUnbounded = "unbounded"
	OutcomeInvalid   = "invalid"
)

// ObserveRequest records a finished API request.
func ObserveRequest(path string, code int, startedAt time.Time) {
	RequestsTotal.WithLabelValues(path, statusLabel(code)).Inc()
	RequestDurationSeconds.WithLabelValues(path).Observe(time.Since(startedAt).Seconds())
}

// ObservePriceFetch records a price fetch attempt.
func ObservePriceFetch(provider string, err error) {
	PriceFetchLastRun.WithLabelValues(provider).Set(float64(time.Now().Unix()))
	if err != nil {
		PriceFetchFailuresTotal.WithLabelValues(provider).Inc()
	}
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
