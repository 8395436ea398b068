package engine

import "time"

// Clock supplies timestamps for check snapshots and record updates.
// Implemented by SystemClock (production) and testutil.DeterministicClock
// (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
