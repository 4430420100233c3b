package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/openweathermap-exporter/internal/metrics"
	"github.com/i474232898/openweathermap-exporter/internal/poller"
	"github.com/i474232898/openweathermap-exporter/internal/store"
	"github.com/i474232898/openweathermap-exporter/internal/weather"
)

type fixedStats poller.Stats

func (s fixedStats) Stats() poller.Stats { return poller.Stats(s) }

type fixedState string

func (s fixedState) State() string { return string(s) }

func TestJSONUnavailableIsNull(t *testing.T) {
	is := is.New(t)
	app, _ := setupApp(weather.Metric, "")

	status, contentType, body := get(t, app, "/json")
	is.Equal(status, http.StatusOK)
	is.True(strings.HasPrefix(contentType, fiber.MIMEApplicationJSON))
	is.Equal(body, "null")
}

func TestJSONFailed(t *testing.T) {
	is := is.New(t)
	app, cell := setupApp(weather.Metric, "")

	cell.Write(weather.FailedWithStatus(401))
	status, _, body := get(t, app, "/json")
	is.Equal(status, http.StatusOK)
	is.Equal(body, `{"error":401}`)

	cell.Write(weather.Failed{})
	_, _, body = get(t, app, "/json")
	is.Equal(body, `{"error":null}`)
}

func TestJSONReadyPassesReadingThrough(t *testing.T) {
	is := is.New(t)
	app, cell := setupApp(weather.Imperial, "")

	oneHour := 0.5
	cell.Write(weather.Ready{Reading: weather.Reading{
		Coord:      weather.Coordinates{Lat: 51.5, Lon: -0.1},
		Conditions: []weather.Condition{{ID: 804, Main: "Clouds", Description: "overcast clouds", Icon: "04d"}},
		Main:       weather.MainReading{Temp: 10, Humidity: 80, Pressure: 1012},
		Wind:       weather.Wind{Speed: 3.2, Deg: 180},
		Rain:       weather.Volume{OneHour: &oneHour},
		Clouds:     weather.Clouds{All: 90},
	}})

	status, _, body := get(t, app, "/json")
	is.Equal(status, http.StatusOK)

	var doc map[string]any
	is.NoErr(json.Unmarshal([]byte(body), &doc))

	is.Equal(doc["coord"], map[string]any{"lat": 51.5, "lon": -0.1})
	is.Equal(doc["main"].(map[string]any)["temp"], 10.0) // no unit conversion on this path
	is.Equal(doc["wind"], map[string]any{"speed": 3.2, "deg": 180.0})
	is.Equal(doc["rain"], map[string]any{"1h": 0.5})
	is.Equal(doc["snow"], map[string]any{})
	is.Equal(doc["clouds"], map[string]any{"all": 90.0})
	is.Equal(len(doc["weather"].([]any)), 1)
	visibility, hasVisibility := doc["visibility"]
	is.True(hasVisibility) // absent visibility is kept as null
	is.Equal(visibility, nil)
}

func TestMetricsEndToEnd(t *testing.T) {
	is := is.New(t)
	app, cell := setupApp(weather.Metric, "")

	status, contentType, body := get(t, app, "/metrics")
	is.Equal(status, http.StatusOK)
	is.True(strings.HasPrefix(contentType, "text/plain"))
	is.Equal(body, "")

	cell.Write(weather.Ready{Reading: weather.Reading{
		Coord:      weather.Coordinates{Lat: 51.5, Lon: -0.1},
		Conditions: []weather.Condition{{Main: "Clouds", Description: "overcast clouds"}},
		Main:       weather.MainReading{Temp: 10.0, Humidity: 80, Pressure: 1012},
		Wind:       weather.Wind{Speed: 3.2, Deg: 180},
		Clouds:     weather.Clouds{All: 90},
	}})

	status, _, body = get(t, app, "/metrics")
	is.Equal(status, http.StatusOK)

	for _, line := range []string{
		"owm_error 0\n",
		"owm_temp{unit=\"c\"} 10\n",
		"owm_humidity{unit=\"percent\"} 80\n",
		"owm_pressure{unit=\"hPa\"} 1012\n",
		"owm_clouds_all{unit=\"percent\"} 90\n",
		"owm_wind_direction{unit=\"degrees\"} 180\n",
		"owm_wind_speed{unit=\"m/s\"} 3.2\n",
		"owm_condition{kind=\"overcast clouds\"} 1\n",
	} {
		is.True(strings.Contains(body, line)) // expected line missing
	}
	is.Equal(strings.Count(body, "owm_condition"), 1)
	is.True(!strings.Contains(body, "owm_rain_volume"))
	is.True(!strings.Contains(body, "owm_snow_volume"))
	is.True(!strings.Contains(body, "owm_visibility"))
}

func TestMetricsFailedStillReturnsOK(t *testing.T) {
	is := is.New(t)
	app, cell := setupApp(weather.Metric, "home")

	cell.Write(weather.FailedWithStatus(503))

	status, _, body := get(t, app, "/metrics")
	is.Equal(status, http.StatusOK)
	is.Equal(body, "owm_error{location=\"home\"} 1\nowm_error{code=\"503\",location=\"home\"} 1\n")
}

func TestHealth(t *testing.T) {
	is := is.New(t)

	app := fiber.New()
	last := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	reg := prometheus.NewRegistry()
	RegisterDiagnostics(app, fixedStats{Running: true, Attempts: 3, Failures: 1, LastSuccess: &last}, fixedState("closed"), reg)

	status, _, body := get(t, app, "/health")
	is.Equal(status, http.StatusOK)

	var doc struct {
		Status   string       `json:"status"`
		Service  string       `json:"service"`
		Provider string       `json:"provider"`
		Poller   poller.Stats `json:"poller"`
	}
	is.NoErr(json.Unmarshal([]byte(body), &doc))
	is.Equal(doc.Status, "ok")
	is.Equal(doc.Service, ServiceName)
	is.Equal(doc.Provider, "closed")
	is.Equal(doc.Poller.Attempts, int64(3))
	is.True(doc.Poller.LastSuccess.Equal(last))
}

func TestExporterMetrics(t *testing.T) {
	is := is.New(t)

	app := fiber.New()
	reg := prometheus.NewRegistry()
	poller.NewMetrics(reg)
	RegisterDiagnostics(app, fixedStats{}, fixedState("closed"), reg)

	status, _, body := get(t, app, "/exporter/metrics")
	is.Equal(status, http.StatusOK)
	is.True(strings.Contains(body, "owm_exporter_last_success_timestamp_seconds"))
}

func setupApp(units weather.Units, location string) (*fiber.App, *store.OutcomeCell) {
	app := fiber.New()
	cell := store.NewOutcomeCell()
	RegisterRoutes(app, cell, metrics.NewFormatter(units, location))
	return app, cell
}

func get(t *testing.T, app *fiber.App, path string) (int, string, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, resp.Header.Get(fiber.HeaderContentType), string(b)
}
