package persistence

import (
	"time"

	"github.com/example/gauntlet/internal/ports/secondary"
)

// SystemClock implements the clock port with the wall clock.
type SystemClock struct{}

// NewSystemClock creates a new SystemClock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Ensure SystemClock implements the interface
var _ secondary.Clock = SystemClock{}
