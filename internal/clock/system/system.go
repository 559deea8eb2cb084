// Package system provides a real clock implementation.
package system

import "time"

// Clock implements notice.Clock using time.Now. Callers convert to a local
// zone where calendar days matter.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
