package weather

import (
	"context"
	"errors"
	"fmt"
)

// Provider abstracts the remote weather API the poller calls once per cycle.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, coords Coordinates) (Reading, error)
}

// StatusError is returned by a Provider when the remote API answered with a
// non-2xx status.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d", e.Provider, e.Code)
}

// OutcomeFromError maps a failed fetch to a Failed outcome. Only provider
// error responses carry a status.
func OutcomeFromError(err error) Failed {
	var se *StatusError
	if errors.As(err, &se) {
		return FailedWithStatus(se.Code)
	}
	return Failed{}
}
