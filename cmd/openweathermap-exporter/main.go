package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/openweathermap-exporter/internal/api/http"
	"github.com/i474232898/openweathermap-exporter/internal/config"
	"github.com/i474232898/openweathermap-exporter/internal/logging"
	"github.com/i474232898/openweathermap-exporter/internal/metrics"
	"github.com/i474232898/openweathermap-exporter/internal/poller"
	"github.com/i474232898/openweathermap-exporter/internal/store"
	"github.com/i474232898/openweathermap-exporter/internal/weather/providers"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout.Std(),
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	provider := providers.NewOpenWeatherProvider(providers.HTTPClientConfig{
		Client:  httpClient,
		Breaker: providers.HealthBreaker(cfg.BreakerFailures, cfg.BackoffInterval.Std()),
	}, cfg.Endpoint, cfg.APIKey, cfg.UnitSystem, logger)

	cell := store.NewOutcomeCell()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	weatherPoller := poller.New(provider, cell, poller.Config{
		Coordinates: cfg.Coordinates,
		Interval:    cfg.Interval.Std(),
		Backoff:     cfg.BackoffInterval.Std(),
	}, logger, poller.NewMetrics(registry))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pollerDone, err := weatherPoller.Start(ctx)
	if err != nil {
		logger.Fatal("failed to start poller", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:               httpapi.ServiceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, cell, metrics.NewFormatter(cfg.UnitSystem, cfg.Location))
	httpapi.RegisterDiagnostics(app, weatherPoller, provider, registry)

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr()), zap.Stringer("units", cfg.UnitSystem))
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}

	select {
	case <-pollerDone:
	case <-shutdownCtx.Done():
		logger.Warn("poller did not stop before shutdown deadline")
	}
}
