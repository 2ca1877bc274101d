package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func TestForecastCache(t *testing.T) {
	c := NewForecastCache(time.Minute)

	_, ok := c.Get("paris")
	assert.False(t, ok)

	days := []weather.ForecastDay{{City: "Paris", Date: "2024-03-10", TempF: 50}}
	c.Set("paris", days)
	days[0].TempF = 99

	got, ok := c.Get("paris")
	require.True(t, ok)
	assert.Equal(t, 50.0, got[0].TempF, "cache keeps its own copy")

	got[0].City = "changed"
	again, _ := c.Get("paris")
	assert.Equal(t, "Paris", again[0].City)
	assert.Equal(t, 1, c.Len())
}

func TestForecastCacheExpiry(t *testing.T) {
	c := NewForecastCache(20 * time.Millisecond)
	c.Set("oslo", []weather.ForecastDay{{Date: "2024-03-10"}})

	assert.Eventually(t, func() bool {
		_, ok := c.Get("oslo")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
