package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type callLog struct {
	mu       sync.Mutex
	outcomes []string
}

func (c *callLog) ObserveUpstream(provider, operation, outcome string, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, provider+"/"+operation+"/"+outcome)
}

func TestDoRequestRecordsEachAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	log := &callLog{}
	cfg := testHTTPConfig()
	cfg.Recorder = log

	var out []any
	err := getJSON(context.Background(), cfg, newBreaker("test"), "geocode", srv.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"test/geocode/rate_limited", "test/geocode/ok"}, log.outcomes)
}

func TestDoRequestOpensCircuit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cfg := testHTTPConfig()
	cfg.Backoff.MaxRetries = 0
	cb := newBreaker("flaky")

	var out any
	for i := 0; i < 6; i++ {
		err := getJSON(context.Background(), cfg, cb, "forecast", srv.URL, &out)
		require.ErrorIs(t, err, weather.ErrUpstream)
	}

	err := getJSON(context.Background(), cfg, cb, "forecast", srv.URL, &out)
	require.ErrorIs(t, err, weather.ErrUpstream)
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.EqualValues(t, 6, hits.Load(), "open circuit short-circuits the request")
}

func TestDoRequestRateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	cfg := testHTTPConfig()
	cfg.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	var out any
	require.NoError(t, getJSON(context.Background(), cfg, newBreaker("limited"), "forecast", srv.URL, &out))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := getJSON(ctx, cfg, newBreaker("limited"), "forecast", srv.URL, &out)
	assert.ErrorIs(t, err, weather.ErrUpstream)
}

func TestDoRequestInvalidConfig(t *testing.T) {
	var out any
	err := getJSON(context.Background(), HTTPClientConfig{}, newBreaker("x"), "geocode", "http://example.invalid", &out)
	assert.ErrorIs(t, err, weather.ErrUpstream)
	assert.ErrorIs(t, err, errNoHTTPClient)
}
