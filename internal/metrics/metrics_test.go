package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveForecast("ok")
	m.ObserveForecast("ok")
	m.ObserveForecast("not_found")
	m.ObserveUpstream("openweathermap", "geocode", "ok", 120*time.Millisecond)
	m.ObserveHistory("add", nil)
	m.ObserveHistory("remove", errors.New("disk full"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.forecasts.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forecasts.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("openweathermap", "geocode", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historyOps.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.historyOps.WithLabelValues("remove", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveForecast("ok")
		m.ObserveUpstream("p", "op", "ok", time.Second)
		m.ObserveHistory("list", nil)
	})
}
