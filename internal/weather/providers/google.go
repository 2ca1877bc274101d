package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// geocoderKeyMu guards the package-level key of kelvins/geocoder.
var geocoderKeyMu sync.Mutex

// GoogleGeocoder implements weather.Geocoder on top of the Google Geocoding API.
type GoogleGeocoder struct {
	lookup func(geocoder.Address) (geocoder.Location, error)
}

var _ weather.Geocoder = (*GoogleGeocoder)(nil)

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoderKeyMu.Lock()
	geocoder.ApiKey = apiKey
	geocoderKeyMu.Unlock()

	return &GoogleGeocoder{lookup: geocoder.Geocoding}
}

func (g *GoogleGeocoder) Name() string {
	return "google"
}

// Geocode resolves query through Google. The library call has no context
// support, so it runs in its own goroutine and the caller stops waiting once
// ctx is done.
func (g *GoogleGeocoder) Geocode(ctx context.Context, query string) (weather.Coordinates, error) {
	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)

	go func() {
		// The library indexes the first result for statuses it does not know.
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("geocoder panic: %v", p)}
			}
		}()
		// The library only replaces spaces, so the query is escaped here.
		loc, err := g.lookup(geocoder.Address{City: url.QueryEscape(query)})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, upstreamErr(g.Name(), "geocode", ctx.Err())
	case r := <-done:
		if r.err != nil {
			msg := strings.ToLower(r.err.Error())
			if common.HasAny(msg, "zero_results", "empty", "no results", "not found") {
				return weather.Coordinates{}, fmt.Errorf("%w: %q", weather.ErrNotFound, query)
			}
			return weather.Coordinates{}, upstreamErr(g.Name(), "geocode", r.err)
		}
		return weather.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
	}
}

// LimitDefaultTransport bounds how long http.DefaultTransport waits for
// response headers. Call it once at startup, before any request is made.
func LimitDefaultTransport(timeout time.Duration) {
	if t, ok := http.DefaultTransport.(*http.Transport); ok && timeout > 0 {
		t.ResponseHeaderTimeout = timeout
	}
}

// RedactingWriter replaces every secret with "[redacted]" before writing to
// the wrapped writer.
type RedactingWriter struct {
	w       io.Writer
	secrets []string
}

func NewRedactingWriter(w io.Writer, secrets ...string) *RedactingWriter {
	rw := &RedactingWriter{w: w}
	for _, s := range secrets {
		if s == "" {
			continue
		}
		rw.secrets = append(rw.secrets, s)
		if esc := url.QueryEscape(s); esc != s {
			rw.secrets = append(rw.secrets, esc)
		}
	}
	return rw
}

func (rw *RedactingWriter) Write(p []byte) (int, error) {
	s := string(p)
	for _, secret := range rw.secrets {
		s = strings.ReplaceAll(s, secret, "[redacted]")
	}
	if _, err := io.WriteString(rw.w, s); err != nil {
		return 0, err
	}
	return len(p), nil
}
