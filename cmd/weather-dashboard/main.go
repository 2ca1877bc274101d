package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.DateTime,
	}))
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Shared HTTP client for outbound provider calls.
	httpCfg := providers.DefaultHTTPConfig(&http.Client{Timeout: cfg.HTTPTimeout})
	httpCfg.Backoff.MaxRetries = cfg.MaxRetries
	httpCfg.Recorder = m
	if cfg.RateLimit > 0 {
		httpCfg.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	var provider weather.Provider
	switch cfg.Provider {
	case config.ProviderOpenMeteo:
		provider = providers.NewOpenMeteoProvider(httpCfg)
	default:
		provider = providers.NewOpenWeatherProvider(httpCfg, cfg.OpenWeatherAPIKey)
	}

	var geocoder weather.Geocoder = provider
	if cfg.GoogleGeocoderAPIKey != "" {
		// kelvins/geocoder logs request URLs, key included, through the
		// standard logger and uses a client with no timeout.
		log.SetOutput(providers.NewRedactingWriter(log.Writer(), cfg.GoogleGeocoderAPIKey))
		providers.LimitDefaultTransport(cfg.HTTPTimeout)
		geocoder = providers.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey)
	}

	opts := []weather.Option{
		weather.WithTimeout(cfg.UpstreamTimeout),
		weather.WithRecorder(m),
		weather.WithLogger(logger),
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, weather.WithCache(store.NewForecastCache(cfg.CacheTTL)))
	}
	service := weather.NewService(geocoder, provider, opts...)

	history := store.NewHistoryStore(cfg.HistoryFile, logger)

	logger.Info("weather service configured",
		slog.String("provider", provider.Name()),
		slog.String("geocoder", geocoder.Name()),
		slog.String("history_file", history.Path()),
		slog.Duration("cache_ttl", cfg.CacheTTL))

	// Warming only makes sense when there is a cache to fill.
	warmEvery := cfg.WarmInterval
	if cfg.CacheTTL <= 0 {
		warmEvery = 0
	}
	sched := scheduler.New(history, service, warmEvery, cfg.UpstreamTimeout, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.UpstreamTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Forecasts: service,
		History:   history,
		Recorder:  m,
		Logger:    logger,
	})

	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		app.Static("/", cfg.StaticDir)
		logger.Info("serving static client", slog.String("dir", cfg.StaticDir))
	}

	go func() {
		logger.Info("listening", slog.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", slog.Any("error", err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", slog.Any("error", err))
	}
}
