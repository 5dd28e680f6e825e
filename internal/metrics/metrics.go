package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the engine
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Business Metrics
	CyclesTotal          *prometheus.CounterVec
	CycleDuration        prometheus.Histogram
	PayoutAmountTotal    prometheus.Counter
	FeeAmountTotal       prometheus.Counter
	TurnReservationTotal *prometheus.CounterVec
	InstallmentsTotal    *prometheus.CounterVec
}

// NewMetricsRegistry registers every metric on reg. Pass
// prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosca_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rosca_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rosca_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosca_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosca_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		// Business Metrics
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosca_cycles_total",
				Help: "Cycle triggers by outcome",
			},
			[]string{"result"},
		),
		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rosca_cycle_duration_seconds",
				Help:    "Cycle transaction time in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		PayoutAmountTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rosca_payout_amount_total",
				Help: "Sum of all payouts credited to recipients",
			},
		),
		FeeAmountTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rosca_fee_amount_total",
				Help: "Sum of positive cycle fees credited to the fee recipient",
			},
		),
		TurnReservationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosca_turn_reservations_total",
				Help: "Turn reservation attempts by outcome",
			},
			[]string{"result"},
		),
		InstallmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosca_installments_total",
				Help: "Member installment payments by outcome",
			},
			[]string{"result"},
		),
	}
}
