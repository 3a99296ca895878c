// Package clock provides Clock implementations.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/envguard/ports"
)

// Real returns the actual current time.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}

// Fake provides a controllable clock for testing deadlines.
type Fake struct {
	mu      sync.RWMutex
	current time.Time
}

// NewFake creates a fake clock set to the given time.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Set sets the fake current time.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
}

// Advance moves the fake time forward by duration d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

// Or returns c, falling back to Real when c is nil.
func Or(c ports.Clock) ports.Clock {
	if c == nil {
		return Real{}
	}
	return c
}

// Deadline returns the absolute time d from now on clock c.
func Deadline(c ports.Clock, d time.Duration) time.Time {
	return Or(c).Now().Add(d)
}

// Passed reports whether deadline is at or before the current time on c.
// A zero deadline never passes.
func Passed(c ports.Clock, deadline time.Time) bool {
	if deadline.IsZero() {
		return false
	}
	return !Or(c).Now().Before(deadline)
}

// Ensure interface compliance.
var (
	_ ports.Clock = Real{}
	_ ports.Clock = (*Fake)(nil)
)
