// SPDX-License-Identifier: MPL-2.0

// Package clock abstracts time so the scheduler can be driven without real delays.
package clock

import "time"

type (
	// Clock abstracts the time operations the scheduler depends on.
	// Production code uses Real; tests use testutil.FakeClock.
	Clock interface {
		// Now returns the current time.
		Now() time.Time

		// After waits for the duration to elapse and then sends the current time.
		After(d time.Duration) <-chan time.Time
	}

	// Real implements Clock using the system time.
	Real struct{}
)

// Now returns the current system time.
func (Real) Now() time.Time {
	return time.Now()
}

// After returns a channel that receives the time after duration d.
func (Real) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
