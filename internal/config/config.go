package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderOpenWeather = "openweather"
	ProviderOpenMeteo   = "openmeteo"
)

type AppConfig struct {
	Port string

	// Provider selects the upstream weather backend.
	Provider          string
	OpenWeatherAPIKey string
	// GoogleGeocoderAPIKey, when set, routes geocoding through Google.
	GoogleGeocoderAPIKey string

	HistoryFile string
	StaticDir   string

	HTTPTimeout     time.Duration // per outbound HTTP request
	UpstreamTimeout time.Duration // whole geocode + forecast sequence
	RateLimit       float64       // outbound requests per second (0 = unlimited)
	RateBurst       int
	MaxRetries      int

	// Forecast cache; 0 disables it.
	CacheTTL time.Duration
	// How often the cache is warmed for the cities in history; 0 disables it.
	WarmInterval time.Duration

	LogLevel slog.Level
}

// Load reads configuration from environment with sensible defaults. A missing
// API key for the selected provider is an error.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "3001")
	cfg.Provider = strings.ToLower(getenvDefault("WEATHER_PROVIDER", ProviderOpenWeather))
	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", os.Getenv("API_KEY"))
	cfg.GoogleGeocoderAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")
	cfg.HistoryFile = getenvDefault("HISTORY_FILE", "db/searchHistory.json")
	cfg.StaticDir = getenvDefault("STATIC_DIR", "../client/dist")

	switch cfg.Provider {
	case ProviderOpenWeather:
		if cfg.OpenWeatherAPIKey == "" {
			return nil, fmt.Errorf("missing OpenWeather API key: set OPENWEATHER_API_KEY or API_KEY")
		}
	case ProviderOpenMeteo:
	default:
		return nil, fmt.Errorf("invalid WEATHER_PROVIDER %q: want %q or %q", cfg.Provider, ProviderOpenWeather, ProviderOpenMeteo)
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getenvDuration("UPSTREAM_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getenvDuration("FORECAST_CACHE_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.WarmInterval, err = getenvDuration("CACHE_WARM_INTERVAL", "30m"); err != nil {
		return nil, err
	}

	rps, err := strconv.ParseFloat(getenvDefault("UPSTREAM_RATE_LIMIT", "1"), 64)
	if err != nil || rps < 0 {
		return nil, fmt.Errorf("invalid UPSTREAM_RATE_LIMIT: must be a non-negative number")
	}
	cfg.RateLimit = rps
	cfg.RateBurst = getenvInt("UPSTREAM_BURST", 5)
	cfg.MaxRetries = getenvInt("UPSTREAM_MAX_RETRIES", 2)
	if cfg.MaxRetries < 0 || cfg.RateBurst < 1 {
		return nil, fmt.Errorf("invalid UPSTREAM_MAX_RETRIES or UPSTREAM_BURST")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
