package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultTimeout bounds one GetForecast call when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// Service resolves a city and shapes the provider forecast for callers.
type Service struct {
	geocoder  Geocoder
	forecasts ForecastSource
	cache     Cache
	recorder  Recorder
	timeout   time.Duration
	logger    *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithCache enables serving and storing forecasts through c.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithTimeout sets the deadline applied to the upstream calls of one request.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRecorder reports forecast outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger used by the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new Service.
func NewService(geocoder Geocoder, forecasts ForecastSource, opts ...Option) *Service {
	s := &Service{
		geocoder:  geocoder,
		forecasts: forecasts,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "weather"))
	return s
}

// GetForecast returns current conditions followed by up to five daily
// readings for cityName. Cached results are served when a cache is configured.
func (s *Service) GetForecast(ctx context.Context, cityName string) ([]ForecastDay, error) {
	key, err := cacheKey(cityName)
	if err != nil {
		s.observe("invalid")
		return nil, err
	}

	if s.cache != nil {
		if days, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "forecast served from cache", slog.String("city", cityName))
			s.observe("cached")
			return withCity(days, cityName), nil
		}
	}

	return s.fetch(ctx, key, cityName)
}

// Refresh fetches a fresh forecast for cityName, bypassing and then updating
// the cache.
func (s *Service) Refresh(ctx context.Context, cityName string) error {
	key, err := cacheKey(cityName)
	if err != nil {
		return err
	}
	_, err = s.fetch(ctx, key, cityName)
	return err
}

func (s *Service) fetch(ctx context.Context, key, cityName string) ([]ForecastDay, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	coords, err := s.geocoder.Geocode(ctx, cityName)
	if err != nil {
		err = classify(ctx, err)
		s.logger.WarnContext(ctx, "geocoding failed",
			slog.String("city", cityName),
			slog.String("provider", s.geocoder.Name()),
			slog.Any("error", err))
		s.observe(outcome(err))
		return nil, err
	}

	series, err := s.forecasts.FetchForecast(ctx, coords)
	if err != nil {
		err = classify(ctx, err)
		s.logger.WarnContext(ctx, "forecast fetch failed",
			slog.String("city", cityName),
			slog.String("provider", s.forecasts.Name()),
			slog.Any("error", err))
		s.observe(outcome(err))
		return nil, err
	}
	if len(series) == 0 {
		s.observe("upstream_error")
		return nil, fmt.Errorf("%w: %s returned an empty forecast series", ErrUpstream, s.forecasts.Name())
	}

	days := BuildForecast(cityName, series)
	if s.cache != nil {
		s.cache.Set(key, days)
	}

	s.logger.DebugContext(ctx, "forecast built",
		slog.String("city", cityName),
		slog.Int("days", len(days)-1))
	s.observe("ok")
	return days, nil
}

func (s *Service) observe(outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveForecast(outcome)
	}
}

// cacheKey normalizes cityName and rejects blank input.
func cacheKey(cityName string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(cityName))
	if key == "" {
		return "", fmt.Errorf("%w: city name is required", ErrValidation)
	}
	return key, nil
}

// classify makes deadline failures distinguishable and keeps everything else
// inside the upstream taxonomy.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if errors.Is(err, ErrTimeout) {
			return err
		}
		return fmt.Errorf("%w: %w: %v", ErrUpstream, ErrTimeout, err)
	}
	if errors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "upstream_error"
	}
}

// withCity copies days and echoes cityName on the first element, so cached
// entries report the name as queried.
func withCity(days []ForecastDay, cityName string) []ForecastDay {
	out := make([]ForecastDay, len(days))
	copy(out, days)
	if len(out) > 0 {
		out[0].City = cityName
	}
	return out
}
