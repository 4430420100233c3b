package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/openweathermap-exporter/internal/metrics"
	"github.com/i474232898/openweathermap-exporter/internal/poller"
	"github.com/i474232898/openweathermap-exporter/internal/weather"
)

const ServiceName = "openweathermap-exporter"

const contentTypeExposition = "text/plain; version=0.0.4; charset=utf-8"

// OutcomeReader is the read side of the outcome cell.
type OutcomeReader interface {
	Read() weather.Outcome
}

// PollerStats reports poll activity for the health endpoint.
type PollerStats interface {
	Stats() poller.Stats
}

// ProviderHealth reports the provider circuit state.
type ProviderHealth interface {
	State() string
}

// RegisterRoutes wires the weather endpoints into the Fiber app. Both always
// answer 200; the outcome state is reported in the body.
func RegisterRoutes(app *fiber.App, cell OutcomeReader, formatter *metrics.Formatter) {
	app.Get("/json", func(c *fiber.Ctx) error {
		return c.JSON(passThrough(cell.Read()))
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, contentTypeExposition)
		return c.SendString(formatter.Format(cell.Read()))
	})
}

// RegisterDiagnostics wires the health and self-instrumentation endpoints.
func RegisterDiagnostics(app *fiber.App, stats PollerStats, provider ProviderHealth, gatherer prometheus.Gatherer) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  ServiceName,
			"poller":   stats.Stats(),
			"provider": provider.State(),
		})
	})

	app.Get("/exporter/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// passThrough returns the JSON view of an outcome: the reading as-is, an
// object carrying the optional failure status, or null.
func passThrough(o weather.Outcome) any {
	switch o := o.(type) {
	case weather.Unavailable:
		return nil
	case weather.Failed:
		return fiber.Map{"error": o.Status}
	case weather.Ready:
		return o.Reading
	default:
		panic(weather.UnknownOutcome(o))
	}
}
