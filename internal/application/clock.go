package application

import "time"

// Clock is injected into services so tests can pin "now".
type Clock interface {
	Now() time.Time
}

// SystemClock is the default implementation, returning UTC wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
