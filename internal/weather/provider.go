package weather

import (
	"context"
)

// Geocoder resolves a free-text city name to the coordinates of its top match.
// Implementations return an error wrapping ErrNotFound when nothing matches and
// ErrUpstream for any transport or API failure.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) (Coordinates, error)
}

// ForecastSource returns a chronologically ordered series of 3-hour readings
// in metric units for the given coordinates.
type ForecastSource interface {
	Name() string
	FetchForecast(ctx context.Context, at Coordinates) ([]Reading, error)
}

// Provider is a weather backend that can both geocode and forecast.
type Provider interface {
	Geocoder
	ForecastSource
}

// Cache is the contract for an optional forecast cache keyed by normalized
// city name.
type Cache interface {
	Get(key string) ([]ForecastDay, bool)
	Set(key string, days []ForecastDay)
}

// Recorder receives forecast outcomes for instrumentation.
type Recorder interface {
	ObserveForecast(outcome string)
}
