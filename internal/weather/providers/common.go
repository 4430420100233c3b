package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/openweathermap-exporter/internal/weather"
)

// BreakerConfig controls how provider health is tracked.
type BreakerConfig struct {
	// Failures is the number of consecutive failures after which the provider
	// is reported open. Zero disables tripping.
	Failures uint32

	// OpenTimeout is how long the breaker stays open before letting the next
	// request through. Keep it below the poll backoff interval so a scheduled
	// poll is never rejected.
	OpenTimeout time.Duration
}

// HealthBreaker is the breaker setting for a poller that waits backoff after
// each failure. The breaker lets a trial request through after half the
// backoff, so the next scheduled poll always reaches the provider and a
// provider error keeps its status.
func HealthBreaker(failures uint32, backoff time.Duration) BreakerConfig {
	return BreakerConfig{Failures: failures, OpenTimeout: backoff / 2}
}

// HTTPClientConfig bundles the HTTP client and health tracking settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Breaker BreakerConfig
}

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

func newBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = time.Nanosecond
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.Failures > 0 && counts.ConsecutiveFailures >= cfg.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider health changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// doRequest executes a single request through the circuit breaker and hands
// a 2xx response body to decode. There are no retries: the next poll cycle
// is the retry.
func doRequest[T any](
	ctx context.Context,
	provider string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
	decode func(body io.Reader) (T, error),
) (T, error) {
	var zero T

	if cfg.Client == nil {
		return zero, errNoHTTPClient
	}

	req, err := buildRequest(ctx)
	if err != nil {
		return zero, err
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, &weather.StatusError{Provider: provider, Code: resp.StatusCode}
		}

		return decode(resp.Body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return zero, err
	}

	v, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result type %T from circuit breaker", result)
	}
	return v, nil
}
