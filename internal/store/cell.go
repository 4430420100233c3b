package store

import (
	"sync"

	"github.com/i474232898/openweathermap-exporter/internal/weather"
)

// OutcomeCell is a concurrency-safe holder for the latest poll outcome.
// It has exactly one writer, the poller, and any number of readers.
type OutcomeCell struct {
	mu sync.RWMutex

	// writer is held for the duration of a Write. Failing to acquire it means
	// a second writer exists.
	writer sync.Mutex

	current weather.Outcome
}

// NewOutcomeCell creates a cell holding weather.Unavailable.
func NewOutcomeCell() *OutcomeCell {
	return &OutcomeCell{
		current: weather.Unavailable{},
	}
}

// Read returns the current outcome. It never waits for a poll.
func (c *OutcomeCell) Read() weather.Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current
}

// Write replaces the current outcome. Concurrent writers are a programming
// error and cause a panic.
func (c *OutcomeCell) Write(o weather.Outcome) {
	if o == nil {
		panic("store: nil outcome")
	}
	if !c.writer.TryLock() {
		panic("store: concurrent writes to outcome cell")
	}
	defer c.writer.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = o
}
