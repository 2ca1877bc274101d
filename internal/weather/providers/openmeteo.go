package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// OpenMeteoProvider implements weather.Provider for Open-Meteo. It needs no
// API key. The hourly forecast is resampled to 3-hour slots.
type OpenMeteoProvider struct {
	name        string
	geoURL      string
	forecastURL string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
	now         func() time.Time
}

var _ weather.Provider = (*OpenMeteoProvider)(nil)

func NewOpenMeteoProvider(cfg HTTPClientConfig) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:        "openmeteo",
		geoURL:      "https://geocoding-api.open-meteo.com",
		forecastURL: "https://api.open-meteo.com",
		httpCfg:     cfg,
		circuit:     newBreaker("openmeteo"),
		now:         time.Now,
	}
}

// WithBaseURL points both geocoding and forecast requests at baseURL.
func (p *OpenMeteoProvider) WithBaseURL(baseURL string) *OpenMeteoProvider {
	p.geoURL = baseURL
	p.forecastURL = baseURL
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Geocode resolves query to the coordinates of the top match.
func (p *OpenMeteoProvider) Geocode(ctx context.Context, query string) (weather.Coordinates, error) {
	values := url.Values{}
	values.Set("name", query)
	values.Set("count", "1")
	values.Set("format", "json")

	var payload struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}

	u := fmt.Sprintf("%s/v1/search?%s", p.geoURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, "geocode", u, &payload); err != nil {
		return weather.Coordinates{}, err
	}

	if len(payload.Results) == 0 {
		return weather.Coordinates{}, fmt.Errorf("%w: %q", weather.ErrNotFound, query)
	}
	top := payload.Results[0]
	return weather.Coordinates{Lat: top.Latitude, Lon: top.Longitude}, nil
}

type openMeteoHourly struct {
	Time        []string  `json:"time"`
	Temperature []float64 `json:"temperature_2m"`
	Humidity    []float64 `json:"relative_humidity_2m"`
	WindSpeed   []float64 `json:"wind_speed_10m"`
	WeatherCode []int     `json:"weather_code"`
}

// FetchForecast returns 3-hour readings starting at the slot containing now.
func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, at weather.Coordinates) ([]weather.Reading, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(at.Lon, 'f', -1, 64))
	values.Set("hourly", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")
	values.Set("wind_speed_unit", "ms")
	values.Set("forecast_days", "6")
	values.Set("timezone", "UTC")

	var payload struct {
		Hourly *openMeteoHourly `json:"hourly"`
	}

	u := fmt.Sprintf("%s/v1/forecast?%s", p.forecastURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, "forecast", u, &payload); err != nil {
		return nil, err
	}
	if payload.Hourly == nil {
		return nil, fmt.Errorf("%w: %s forecast: missing hourly block", weather.ErrUpstream, p.name)
	}

	readings, err := resampleHourly(*payload.Hourly, p.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %s forecast: %v", weather.ErrUpstream, p.name, err)
	}
	return readings, nil
}

// resampleHourly keeps every slot on a 3-hour boundary at or after the slot
// containing now.
func resampleHourly(h openMeteoHourly, now time.Time) ([]weather.Reading, error) {
	n := len(h.Time)
	if len(h.Temperature) != n || len(h.Humidity) != n || len(h.WindSpeed) != n || len(h.WeatherCode) != n {
		return nil, fmt.Errorf("hourly arrays have mismatched lengths")
	}

	start := now.Truncate(3 * time.Hour)
	readings := make([]weather.Reading, 0, n/3+1)
	for i := range h.Time {
		ts, err := time.Parse("2006-01-02T15:04", h.Time[i])
		if err != nil {
			return nil, fmt.Errorf("invalid time %q", h.Time[i])
		}
		if ts.Hour()%3 != 0 || ts.Before(start) {
			continue
		}

		desc, icon := mapOpenMeteoCode(h.WeatherCode[i], ts.Hour() >= 6 && ts.Hour() < 18)
		readings = append(readings, weather.Reading{
			Date:         ts.Format(weather.ReadingLayout),
			TemperatureC: h.Temperature[i],
			WindSpeed:    h.WindSpeed[i],
			Humidity:     int(h.Humidity[i] + 0.5),
			Description:  desc,
			Icon:         icon,
		})
	}
	return readings, nil
}

// mapOpenMeteoCode translates a WMO weather code into a description and an
// OpenWeatherMap-style icon code, so clients render both providers alike.
func mapOpenMeteoCode(code int, day bool) (string, string) {
	suffix := "n"
	if day {
		suffix = "d"
	}

	var desc, icon string
	switch {
	case code == 0:
		desc, icon = "clear sky", "01"
	case code == 1:
		desc, icon = "mainly clear", "02"
	case code == 2:
		desc, icon = "partly cloudy", "03"
	case code == 3:
		desc, icon = "overcast clouds", "04"
	case code == 45 || code == 48:
		desc, icon = "fog", "50"
	case code >= 51 && code <= 57:
		desc, icon = "drizzle", "09"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		desc, icon = "rain", "10"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		desc, icon = "snow", "13"
	case code >= 95:
		desc, icon = "thunderstorm", "11"
	default:
		desc, icon = "unknown", "03"
	}
	return desc, icon + suffix
}
