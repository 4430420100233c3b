package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/openweathermap-exporter/internal/weather"
)

// DefaultOpenWeatherURL is the current weather endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

var validate = validator.New()

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	units   weather.Units
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, baseURL, apiKey string, units weather.Units, logger *zap.Logger) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}

	const name = "openweathermap"

	return &OpenWeatherProvider{
		name:    name,
		apiKey:  apiKey,
		baseURL: baseURL,
		units:   units,
		httpCfg: cfg,
		circuit: newBreaker(name, cfg.Breaker, logger.Named("provider")),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// State reports the provider health as closed, half-open or open.
func (p *OpenWeatherProvider) State() string {
	return p.circuit.State().String()
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, coords weather.Coordinates) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", p.baseURL, p.query(coords).Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	return doRequest(ctx, p.name, p.httpCfg, p.circuit, buildRequest, decodeReading)
}

func (p *OpenWeatherProvider) query(coords weather.Coordinates) url.Values {
	values := url.Values{}
	values.Set("lat", coords.QueryLat())
	values.Set("lon", coords.QueryLon())
	values.Set("appid", p.apiKey)

	if units, ok := p.units.APIParam(); ok {
		values.Set("units", units)
	}
	return values
}

// payload mirrors the provider response. Every pointer tagged required must
// be present for the body to count as a reading; zero values are fine, missing
// fields are not.
type payload struct {
	Coord      *wireCoord      `json:"coord" validate:"required"`
	Weather    []wireCondition `json:"weather" validate:"required,dive"`
	Main       *wireMain       `json:"main" validate:"required"`
	Wind       *wireWind       `json:"wind" validate:"required"`
	Rain       *weather.Volume `json:"rain"`
	Snow       *weather.Volume `json:"snow"`
	Clouds     *wireClouds     `json:"clouds" validate:"required"`
	Visibility *uint32         `json:"visibility"`
}

type wireCoord struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lon *float64 `json:"lon" validate:"required"`
}

type wireCondition struct {
	ID          *int    `json:"id" validate:"required"`
	Main        *string `json:"main" validate:"required"`
	Description *string `json:"description" validate:"required"`
	Icon        *string `json:"icon" validate:"required"`
}

type wireMain struct {
	Temp      *float64 `json:"temp" validate:"required"`
	FeelsLike *float64 `json:"feels_like" validate:"required"`
	TempMin   *float64 `json:"temp_min" validate:"required"`
	TempMax   *float64 `json:"temp_max" validate:"required"`
	Pressure  *float64 `json:"pressure" validate:"required"`
	Humidity  *float64 `json:"humidity" validate:"required"`
}

type wireWind struct {
	Speed *float64 `json:"speed" validate:"required"`
	Deg   *uint32  `json:"deg" validate:"required"`
}

type wireClouds struct {
	All *uint32 `json:"all" validate:"required"`
}

func decodeReading(body io.Reader) (weather.Reading, error) {
	var p payload
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		return weather.Reading{}, fmt.Errorf("decode openweather response: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return weather.Reading{}, fmt.Errorf("invalid openweather response: %w", err)
	}

	conditions := make([]weather.Condition, 0, len(p.Weather))
	for _, c := range p.Weather {
		conditions = append(conditions, weather.Condition{
			ID:          *c.ID,
			Main:        *c.Main,
			Description: *c.Description,
			Icon:        *c.Icon,
		})
	}

	r := weather.Reading{
		Coord:      weather.Coordinates{Lat: *p.Coord.Lat, Lon: *p.Coord.Lon},
		Conditions: conditions,
		Main: weather.MainReading{
			Temp:      *p.Main.Temp,
			FeelsLike: *p.Main.FeelsLike,
			TempMin:   *p.Main.TempMin,
			TempMax:   *p.Main.TempMax,
			Pressure:  *p.Main.Pressure,
			Humidity:  *p.Main.Humidity,
		},
		Wind:       weather.Wind{Speed: *p.Wind.Speed, Deg: *p.Wind.Deg},
		Clouds:     weather.Clouds{All: *p.Clouds.All},
		Visibility: p.Visibility,
	}
	if p.Rain != nil {
		r.Rain = *p.Rain
	}
	if p.Snow != nil {
		r.Snow = *p.Snow
	}

	return r, nil
}
