package weather

import "errors"

var (
	// ErrValidation is returned when the caller input is malformed.
	ErrValidation = errors.New("invalid city name")

	// ErrNotFound is returned when the city cannot be geocoded.
	ErrNotFound = errors.New("city not found")

	// ErrUpstream wraps any failure of an external weather or geocoding call.
	ErrUpstream = errors.New("upstream weather provider failure")

	// ErrTimeout marks upstream failures caused by a deadline. Errors wrapping
	// it also match ErrUpstream.
	ErrTimeout = errors.New("upstream weather provider timed out")
)
