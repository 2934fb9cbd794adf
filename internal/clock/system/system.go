// Package system provides a real clock implementation.
package system

import "time"

// Clock implements crawler.Clock using time.Now. All frontier scheduling
// decisions flow through it so stores and workers can be tested without
// sleeping.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC, matching the timezone the stores
// persist so eligibility comparisons never depend on the host's locale.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
