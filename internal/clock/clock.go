// Package clock provides an injectable time source so booking timestamps
// are deterministic in tests.
package clock

import "time"

// Clock yields the current instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a Clock backed by time.Now, in UTC.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	t time.Time
}

// NewFixed returns a Clock pinned to a single instant.
func NewFixed(t time.Time) Clock {
	return fixedClock{t: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.t
}
