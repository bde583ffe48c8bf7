package service

import "time"

// Clock abstracts wall-clock time so that month-rollover and expiry logic can
// be tested deterministically. Production code uses SystemClock; tests inject
// a fixed or stepping clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock {
	return systemClock{}
}
