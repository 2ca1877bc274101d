package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	forecasts        *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	historyOps       *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		forecasts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "forecast_requests_total",
			Help:      "Forecast lookups by outcome.",
		}, []string{"outcome"}),
		upstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "upstream_requests_total",
			Help:      "Outbound provider calls by provider, operation and outcome.",
		}, []string{"provider", "operation", "outcome"}),
		upstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_dashboard",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of outbound provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		historyOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "history_operations_total",
			Help:      "Search history operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
}

func (m *Metrics) ObserveForecast(outcome string) {
	if m == nil {
		return
	}
	m.forecasts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUpstream(provider, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(provider, operation, outcome).Inc()
	m.upstreamLatency.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHistory(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.historyOps.WithLabelValues(operation, outcome).Inc()
}
