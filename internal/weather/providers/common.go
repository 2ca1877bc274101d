package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
	// Limiter throttles outbound requests; nil disables rate limiting.
	Limiter *rate.Limiter
	// Recorder receives one observation per attempt; nil disables it.
	Recorder CallRecorder
}

// CallRecorder observes outbound provider calls.
type CallRecorder interface {
	ObserveUpstream(provider, operation, outcome string, elapsed time.Duration)
}

// DefaultHTTPConfig returns the resilience settings used when none are given.
func DefaultHTTPConfig(client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client: client,
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// permanentError marks failures that retrying cannot fix (4xx other than 429).
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequestWithResilience executes the HTTP request with rate limiting, retries,
// exponential backoff, and a circuit breaker. Returned errors wrap
// weather.ErrUpstream and never include the request URL, which carries the
// API key.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	operation string,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: %w", weather.ErrUpstream, errNoHTTPClient)
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, fmt.Errorf("%w: %w", weather.ErrUpstream, errInvalidConfig)
	}

	var attempt int

	for {
		if err := ctx.Err(); err != nil {
			return nil, upstreamErr(cb.Name(), operation, err)
		}

		if cfg.Limiter != nil {
			if err := cfg.Limiter.Wait(ctx); err != nil {
				return nil, upstreamErr(cb.Name(), operation, fmt.Errorf("rate limit wait canceled: %w", err))
			}
		}

		req, err := buildRequest()
		if err != nil {
			return nil, upstreamErr(cb.Name(), operation, err)
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		started := time.Now()
		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			// Drain so the connection can be reused; the body is never surfaced.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			default:
				return nil, &permanentError{fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)}
			}
		})
		record(cfg, cb.Name(), operation, err, time.Since(started))

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, upstreamErr(cb.Name(), operation, fmt.Errorf("unexpected result type from circuit breaker"))
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, upstreamErr(cb.Name(), operation, fmt.Errorf("%w: %v", errCircuitOpen, err))
		}

		var perm *permanentError
		if errors.As(err, &perm) || attempt >= cfg.Backoff.MaxRetries {
			return nil, upstreamErr(cb.Name(), operation, err)
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, upstreamErr(cb.Name(), operation, ctx.Err())
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}

// getJSON performs a resilient GET and decodes the body into out.
func getJSON(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	operation string,
	rawURL string,
	out any,
) error {
	resp, err := doRequestWithResilience(ctx, cfg, cb, operation, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, rawURL, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return upstreamErr(cb.Name(), operation, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func upstreamErr(provider, operation string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", weather.ErrUpstream, provider, operation, scrub(err))
}

// scrub drops the *url.Error wrapper net/http adds, since its message embeds
// the full request URL including credentials.
func scrub(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return err
}

func record(cfg HTTPClientConfig, provider, operation string, err error, elapsed time.Duration) {
	if cfg.Recorder == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "circuit_open"
	case errors.Is(err, errRateLimited):
		outcome = "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	cfg.Recorder.ObserveUpstream(provider, operation, outcome, elapsed)
}
