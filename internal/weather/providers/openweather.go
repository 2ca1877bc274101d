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

const (
	openWeatherGeoURL      = "http://api.openweathermap.org"
	openWeatherForecastURL = "https://api.openweathermap.org"
)

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap, using
// the direct geocoding API and the 5 day / 3 hour forecast API.
type OpenWeatherProvider struct {
	name        string
	apiKey      string
	geoURL      string
	forecastURL string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
}

var _ weather.Provider = (*OpenWeatherProvider)(nil)

// NewOpenWeatherProvider creates a provider using the public OpenWeatherMap endpoints.
func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:        "openweathermap",
		apiKey:      apiKey,
		geoURL:      openWeatherGeoURL,
		forecastURL: openWeatherForecastURL,
		httpCfg:     cfg,
		circuit:     newBreaker("openweathermap"),
	}
}

// WithBaseURL points both geocoding and forecast requests at baseURL.
func (p *OpenWeatherProvider) WithBaseURL(baseURL string) *OpenWeatherProvider {
	p.geoURL = baseURL
	p.forecastURL = baseURL
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmGeoMatch struct {
	Name    string   `json:"name"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Country string   `json:"country"`
}

// Geocode resolves query to the coordinates of the top match.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, query string) (weather.Coordinates, error) {
	if p.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("%w: openweather api key is not configured", weather.ErrUpstream)
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", "1")
	values.Set("appid", p.apiKey)

	var matches []owmGeoMatch
	u := fmt.Sprintf("%s/geo/1.0/direct?%s", p.geoURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, "geocode", u, &matches); err != nil {
		return weather.Coordinates{}, err
	}

	if len(matches) == 0 {
		return weather.Coordinates{}, fmt.Errorf("%w: %q", weather.ErrNotFound, query)
	}

	top := matches[0]
	if top.Lat == nil || top.Lon == nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %s geocode: match without coordinates", weather.ErrUpstream, p.name)
	}
	return weather.Coordinates{Lat: *top.Lat, Lon: *top.Lon}, nil
}

type owmForecastResponse struct {
	List []owmForecastItem `json:"list"`
}

type owmForecastItem struct {
	DtTxt string `json:"dt_txt"`
	Main  *struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

// FetchForecast returns the 3-hour series for the given coordinates in metric units.
func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, at weather.Coordinates) ([]weather.Reading, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: openweather api key is not configured", weather.ErrUpstream)
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(at.Lon, 'f', -1, 64))
	values.Set("units", "metric")
	values.Set("appid", p.apiKey)

	var payload owmForecastResponse
	u := fmt.Sprintf("%s/data/2.5/forecast?%s", p.forecastURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, "forecast", u, &payload); err != nil {
		return nil, err
	}

	readings := make([]weather.Reading, 0, len(payload.List))
	for i, item := range payload.List {
		r, err := item.toReading()
		if err != nil {
			return nil, fmt.Errorf("%w: %s forecast item %d: %v", weather.ErrUpstream, p.name, i, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

func (item owmForecastItem) toReading() (weather.Reading, error) {
	if _, err := time.Parse(weather.ReadingLayout, item.DtTxt); err != nil {
		return weather.Reading{}, fmt.Errorf("invalid dt_txt %q", item.DtTxt)
	}
	if item.Main == nil {
		return weather.Reading{}, fmt.Errorf("missing main block")
	}
	if len(item.Weather) == 0 {
		return weather.Reading{}, fmt.Errorf("missing weather conditions")
	}

	return weather.Reading{
		Date:         item.DtTxt,
		TemperatureC: item.Main.Temp,
		WindSpeed:    item.Wind.Speed,
		Humidity:     item.Main.Humidity,
		Description:  item.Weather[0].Description,
		Icon:         item.Weather[0].Icon,
	}, nil
}
