package weather

import "fmt"

// Outcome is the result of the most recent poll attempt. The set of
// implementations is closed: Unavailable, Failed and Ready. Consumers switch
// on the concrete type and must panic on anything else.
type Outcome interface {
	outcome()
}

// Unavailable means no poll attempt has completed yet.
type Unavailable struct{}

// Failed means the last attempt failed. Status is set only when the provider
// answered with an error status.
type Failed struct {
	Status *int
}

// Ready carries the reading of the last successful attempt.
type Ready struct {
	Reading Reading
}

func (Unavailable) outcome() {}
func (Failed) outcome()      {}
func (Ready) outcome()       {}

// FailedWithStatus is a Failed outcome for an HTTP error response.
func FailedWithStatus(code int) Failed {
	return Failed{Status: &code}
}

// UnknownOutcome is the panic value for a type switch that fell through.
func UnknownOutcome(o Outcome) string {
	return fmt.Sprintf("weather: unknown outcome %T", o)
}
