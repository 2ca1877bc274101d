package store

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// ForecastCache is an in-memory, TTL-bound cache of built forecasts keyed by
// normalized city name.
type ForecastCache struct {
	items *gocache.Cache
}

var _ weather.Cache = (*ForecastCache)(nil)

// NewForecastCache creates a cache whose entries expire after ttl. Expired
// entries are purged every 2*ttl.
func NewForecastCache(ttl time.Duration) *ForecastCache {
	return &ForecastCache{items: gocache.New(ttl, 2*ttl)}
}

// Get returns a copy of the cached forecast for key.
func (c *ForecastCache) Get(key string) ([]weather.ForecastDay, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	days, ok := v.([]weather.ForecastDay)
	if !ok {
		return nil, false
	}
	out := make([]weather.ForecastDay, len(days))
	copy(out, days)
	return out, true
}

// Set stores a copy of days under key with the default TTL.
func (c *ForecastCache) Set(key string, days []weather.ForecastDay) {
	stored := make([]weather.ForecastDay, len(days))
	copy(stored, days)
	c.items.Set(key, stored, gocache.DefaultExpiration)
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *ForecastCache) Len() int {
	return c.items.ItemCount()
}
