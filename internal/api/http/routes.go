package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

const (
	msgCityRequired   = "City name is required."
	msgForecastFailed = "Failed to retrieve weather data."
	msgDeleteFailed   = "Failed to delete city"
	msgInvalidID      = "Invalid history id."
)

// ForecastService produces the forecast payload for a city.
type ForecastService interface {
	GetForecast(ctx context.Context, cityName string) ([]weather.ForecastDay, error)
}

// History is the search history the routes read and mutate.
type History interface {
	List() []store.City
	Add(name string) (store.City, error)
	Remove(id string) error
}

// HistoryRecorder observes history operations.
type HistoryRecorder interface {
	ObserveHistory(operation string, err error)
}

// Deps are the collaborators the routes need.
type Deps struct {
	Forecasts ForecastService
	History   History
	Recorder  HistoryRecorder
	Logger    *slog.Logger
}

// ErrorHandler renders errors as {"error": message}. Anything that is not a
// *fiber.Error becomes a 500 with a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	h := &handler{
		forecasts: deps.Forecasts,
		history:   deps.History,
		recorder:  deps.Recorder,
		logger:    deps.Logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With(slog.String("component", "http"))

	w := app.Group("/api/weather")
	w.Post("/", h.postForecast)
	w.Get("/history", h.getHistory)
	w.Delete("/history/:id", h.deleteHistory)
}

type handler struct {
	forecasts ForecastService
	history   History
	recorder  HistoryRecorder
	logger    *slog.Logger
}

// forecastRequest is the body of POST /api/weather.
type forecastRequest struct {
	CityName string `json:"cityName" form:"cityName" validate:"required"`
}

// historyIDParam holds the path parameter of DELETE /api/weather/history/:id.
type historyIDParam struct {
	ID string `validate:"required,uuid"`
}

func (h *handler) postForecast(c *fiber.Ctx) error {
	var req forecastRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgCityRequired)
	}
	// Blank names are rejected, but the name is otherwise used as submitted.
	if err := validate.Struct(forecastRequest{CityName: strings.TrimSpace(req.CityName)}); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgCityRequired)
	}

	ctx := c.UserContext()
	days, err := h.forecasts.GetForecast(ctx, req.CityName)
	if err != nil {
		if errors.Is(err, weather.ErrValidation) {
			return fiber.NewError(fiber.StatusBadRequest, msgCityRequired)
		}
		h.logger.ErrorContext(ctx, "forecast lookup failed",
			slog.String("city", req.CityName),
			slog.Bool("not_found", errors.Is(err, weather.ErrNotFound)),
			slog.Bool("timeout", errors.Is(err, weather.ErrTimeout)),
			slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, msgForecastFailed)
	}

	// History is best effort; the forecast is returned even if the write fails.
	_, err = h.history.Add(req.CityName)
	h.observe("add", err)
	if err != nil {
		h.logger.WarnContext(ctx, "search history not updated", slog.String("city", req.CityName), slog.Any("error", err))
	}

	return c.JSON(days)
}

func (h *handler) getHistory(c *fiber.Ctx) error {
	cities := h.history.List()
	h.observe("list", nil)
	if cities == nil {
		cities = []store.City{}
	}
	return c.JSON(cities)
}

func (h *handler) deleteHistory(c *fiber.Ctx) error {
	p := historyIDParam{ID: c.Params("id")}
	if err := validate.Struct(p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgInvalidID)
	}

	err := h.history.Remove(p.ID)
	h.observe("remove", err)
	if err != nil {
		h.logger.ErrorContext(c.UserContext(), "history delete failed", slog.String("id", p.ID), slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, msgDeleteFailed)
	}
	c.Status(fiber.StatusNoContent)
	return nil
}

func (h *handler) observe(op string, err error) {
	if h.recorder != nil {
		h.recorder.ObserveHistory(op, err)
	}
}
