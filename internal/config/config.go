package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/openweathermap-exporter/internal/weather"
	"github.com/i474232898/openweathermap-exporter/internal/weather/providers"
)

var validate = validator.New()

type AppConfig struct {
	APIKey string `toml:"api_key" validate:"required"`
	Coords string `toml:"coords" validate:"required"`
	Units  string `toml:"units" validate:"oneof=kelvin metric imperial"`

	// Interval is the cooldown after a successful poll, BackoffInterval the
	// cooldown after a failed one.
	Interval        Duration `toml:"interval" validate:"gt=0"`
	BackoffInterval Duration `toml:"backoff_interval" validate:"gt=0"`
	HTTPTimeout     Duration `toml:"http_timeout" validate:"gt=0"`

	Port     int    `toml:"port" validate:"min=1,max=65535"`
	Location string `toml:"location"` // optional location label on every metric line
	Endpoint string `toml:"endpoint" validate:"required,url"`

	BreakerFailures uint32 `toml:"breaker_failures"` // 0 = provider never reported open

	LogLevel  string `toml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `toml:"log_format" validate:"oneof=json console"`

	// Resolved from Coords and Units.
	Coordinates weather.Coordinates `toml:"-"`
	UnitSystem  weather.Units       `toml:"-" validate:"-"`
}

func defaults() *AppConfig {
	return &AppConfig{
		Units:           "kelvin",
		Interval:        Duration(120 * time.Second),
		BackoffInterval: Duration(180 * time.Second),
		HTTPTimeout:     Duration(30 * time.Second),
		Port:            8081,
		Endpoint:        providers.DefaultOpenWeatherURL,
		BreakerFailures: 3,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// cliOptions are the per-option flags, each registered under its long and
// short name.
var cliOptions = []struct {
	long, short, usage string
}{
	{"units", "u", "unit type, one of: kelvin, metric, imperial"},
	{"api-key", "a", "OpenWeatherMap API key"},
	{"interval", "i", "poll interval after a success, in seconds or as a duration"},
	{"backoff-interval", "b", "poll interval after a failure, in seconds or as a duration"},
	{"port", "p", "port to listen on"},
	{"location", "l", "location label added to every metric"},
}

// Load resolves configuration from defaults, an optional TOML file given by
// -config, a .env file, the environment, the per-option flags and finally
// the first positional argument, which is the coordinates.
func Load(args []string) (*AppConfig, error) {
	fs := flag.NewFlagSet("openweathermap-exporter", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a TOML configuration file")

	values := make(map[string]*string, len(cliOptions))
	longNames := make(map[string]string, 2*len(cliOptions))
	for _, o := range cliOptions {
		v := new(string)
		fs.StringVar(v, o.long, "", o.usage)
		fs.StringVar(v, o.short, "", "shorthand for -"+o.long)
		values[o.long] = v
		longNames[o.long] = o.long
		longNames[o.short] = o.long
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		if long, ok := longNames[f.Name]; ok {
			set[long] = *values[long]
		}
	})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()

	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", *configPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.applyFlags(set); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		cfg.Coords = fs.Arg(0)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() error {
	c.Coords = getenvDefault("OWM_COORDS", c.Coords)
	c.APIKey = getenvDefault("OWM_API_KEY", c.APIKey)
	c.Units = getenvDefault("OWM_UNITS", c.Units)
	c.Location = getenvDefault("OWM_LOCATION", c.Location)
	c.Endpoint = getenvDefault("OWM_ENDPOINT", c.Endpoint)
	c.LogLevel = getenvDefault("OWM_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenvDefault("OWM_LOG_FORMAT", c.LogFormat)

	intervals := []struct {
		key string
		dst *Duration
	}{
		{"OWM_INTERVAL", &c.Interval},
		{"OWM_BACKOFF_INTERVAL", &c.BackoffInterval},
		{"OWM_HTTP_TIMEOUT", &c.HTTPTimeout},
	}
	for _, iv := range intervals {
		v := os.Getenv(iv.key)
		if v == "" {
			continue
		}
		d, err := ParseInterval(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", iv.key, err)
		}
		*iv.dst = Duration(d)
	}

	if v := os.Getenv("OWM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid OWM_PORT: %w", err)
		}
		c.Port = port
	}

	if v := os.Getenv("OWM_BREAKER_FAILURES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid OWM_BREAKER_FAILURES: %w", err)
		}
		c.BreakerFailures = uint32(n)
	}

	return nil
}

func (c *AppConfig) applyFlags(set map[string]string) error {
	for name, v := range set {
		switch name {
		case "units":
			c.Units = v
		case "api-key":
			c.APIKey = v
		case "location":
			c.Location = v
		case "interval", "backoff-interval":
			d, err := ParseInterval(v)
			if err != nil {
				return fmt.Errorf("invalid -%s: %w", name, err)
			}
			if name == "interval" {
				c.Interval = Duration(d)
			} else {
				c.BackoffInterval = Duration(d)
			}
		case "port":
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid -port: %w", err)
			}
			c.Port = port
		}
	}
	return nil
}

func (c *AppConfig) resolve() error {
	c.Units = strings.ToLower(strings.TrimSpace(c.Units))
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.Coords != "" {
		coords, err := weather.ParseCoordinates(c.Coords)
		if err != nil {
			return err
		}
		c.Coordinates = coords
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	units, err := weather.ParseUnits(c.Units)
	if err != nil {
		return err
	}
	c.UnitSystem = units

	return nil
}

// ListenAddr is the address the HTTP server binds to.
func (c *AppConfig) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseInterval accepts a Go duration ("2m30s") or a number of seconds
// ("120", "0.5").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a duration nor a number of seconds", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Duration is a time.Duration that decodes from TOML strings or numbers of
// seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case string:
		parsed, err := ParseInterval(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case int64:
		*d = Duration(time.Duration(v) * time.Second)
	case float64:
		*d = Duration(v * float64(time.Second))
	default:
		return fmt.Errorf("unsupported duration value %v (%T)", v, v)
	}
	return nil
}
