package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

type fakeForecasts struct {
	err   error
	calls []string
}

func (f *fakeForecasts) GetForecast(ctx context.Context, cityName string) ([]weather.ForecastDay, error) {
	f.calls = append(f.calls, cityName)
	if f.err != nil {
		return nil, f.err
	}
	return []weather.ForecastDay{
		{City: cityName, Date: "2024-03-10", Icon: "01d", IconDescription: "clear sky", TempF: 68, WindSpeed: 3.1, Humidity: 40},
		{Date: "2024-03-11", Icon: "02d", IconDescription: "few clouds", TempF: 59, WindSpeed: 2.2, Humidity: 55},
	}, nil
}

type brokenHistory struct{}

func (brokenHistory) List() []store.City { return []store.City{} }
func (brokenHistory) Add(name string) (store.City, error) {
	return store.NewCity(name), fmt.Errorf("disk full")
}
func (brokenHistory) Remove(id string) error { return fmt.Errorf("disk full") }

type testEnv struct {
	app       *fiber.App
	forecasts *fakeForecasts
	history   *store.HistoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		app:       fiber.New(fiber.Config{ErrorHandler: ErrorHandler}),
		forecasts: &fakeForecasts{},
		history:   store.NewHistoryStore(filepath.Join(t.TempDir(), "searchHistory.json"), nil),
	}
	RegisterRoutes(env.app, Deps{Forecasts: env.forecasts, History: env.history})
	return env
}

func do(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestPostForecast(t *testing.T) {
	env := newTestEnv(t)

	resp, body := do(t, env.app, http.MethodPost, "/api/weather", `{"cityName":"London"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var days []map[string]any
	require.NoError(t, json.Unmarshal(body, &days))
	require.Len(t, days, 2)
	assert.Equal(t, "London", days[0]["city"])
	assert.Equal(t, 68.0, days[0]["tempF"])
	assert.Equal(t, "clear sky", days[0]["iconDescription"])
	assert.NotContains(t, days[1], "city")

	cities := env.history.List()
	require.Len(t, cities, 1)
	assert.Equal(t, "London", cities[0].Name)
}

func TestPostForecastValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{}`, `{"cityName":""}`, `{"cityName":"   "}`, `not json`} {
		resp, data := do(t, env.app, http.MethodPost, "/api/weather", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.JSONEq(t, `{"error":"City name is required."}`, string(data))
	}
	assert.Empty(t, env.forecasts.calls, "no lookup for invalid input")
	assert.Empty(t, env.history.List())
}

func TestPostForecastUsesNameAsSubmitted(t *testing.T) {
	env := newTestEnv(t)

	resp, body := do(t, env.app, http.MethodPost, "/api/weather", `{"cityName":" Lisbon "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var days []map[string]any
	require.NoError(t, json.Unmarshal(body, &days))
	assert.Equal(t, " Lisbon ", days[0]["city"])
	assert.Equal(t, []string{" Lisbon "}, env.forecasts.calls)

	cities := env.history.List()
	require.Len(t, cities, 1)
	assert.Equal(t, " Lisbon ", cities[0].Name)
}

func TestPostForecastFailuresAreGeneric(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", fmt.Errorf("%w: %q", weather.ErrNotFound, "Nonexistent City Name")},
		{"upstream", fmt.Errorf("%w: openweathermap forecast: unexpected status code: 401 appid=secret", weather.ErrUpstream)},
		{"timeout", fmt.Errorf("%w: %w", weather.ErrUpstream, weather.ErrTimeout)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.forecasts.err = tt.err

			resp, data := do(t, env.app, http.MethodPost, "/api/weather", `{"cityName":"Nonexistent City Name"}`)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.JSONEq(t, `{"error":"Failed to retrieve weather data."}`, string(data))
			assert.Empty(t, env.history.List(), "failed lookups are not recorded")
		})
	}
}

func TestPostForecastSurvivesHistoryWriteFailure(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Deps{Forecasts: &fakeForecasts{}, History: brokenHistory{}})

	resp, _ := do(t, app, http.MethodPost, "/api/weather", `{"cityName":"Paris"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHistoryListEmpty(t *testing.T) {
	env := newTestEnv(t)

	resp, data := do(t, env.app, http.MethodGet, "/api/weather/history", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(data))
}

func TestHistoryDedupAcrossRequests(t *testing.T) {
	env := newTestEnv(t)

	do(t, env.app, http.MethodPost, "/api/weather", `{"cityName":"Paris"}`)
	do(t, env.app, http.MethodPost, "/api/weather", `{"cityName":"paris"}`)

	resp, data := do(t, env.app, http.MethodGet, "/api/weather/history", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cities []store.City
	require.NoError(t, json.Unmarshal(data, &cities))
	require.Len(t, cities, 1)
	assert.Equal(t, "Paris", cities[0].Name)
}

func TestDeleteHistoryFlow(t *testing.T) {
	env := newTestEnv(t)

	do(t, env.app, http.MethodPost, "/api/weather", `{"cityName":"Oslo"}`)
	do(t, env.app, http.MethodPost, "/api/weather", `{"cityName":"Rome"}`)
	cities := env.history.List()
	require.Len(t, cities, 2)

	resp, body := do(t, env.app, http.MethodDelete, "/api/weather/history/"+cities[0].ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)

	_, data := do(t, env.app, http.MethodGet, "/api/weather/history", "")
	var remaining []store.City
	require.NoError(t, json.Unmarshal(data, &remaining))
	require.Len(t, remaining, 1)
	assert.Equal(t, "Rome", remaining[0].Name)
	assert.NotEqual(t, cities[0].ID, remaining[0].ID)
}

func TestDeleteHistoryUnknownID(t *testing.T) {
	env := newTestEnv(t)
	do(t, env.app, http.MethodPost, "/api/weather", `{"cityName":"Oslo"}`)

	resp, _ := do(t, env.app, http.MethodDelete, "/api/weather/history/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Len(t, env.history.List(), 1)
}

func TestDeleteHistoryMalformedID(t *testing.T) {
	env := newTestEnv(t)

	resp, data := do(t, env.app, http.MethodDelete, "/api/weather/history/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Invalid history id."}`, string(data))
}

func TestDeleteHistoryWriteFailure(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Deps{Forecasts: &fakeForecasts{}, History: brokenHistory{}})

	resp, data := do(t, app, http.MethodDelete, "/api/weather/history/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Failed to delete city"}`, string(data))
}
