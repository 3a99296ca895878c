// Package events provides a small publish/subscribe bus for env lifecycle
// events: loads, reloads, failed reloads and destroyed cells.
package events

import (
	"context"
	"sync"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
)

// Event names published by envguard.
const (
	EnvLoaded       = "env.loaded"
	EnvReloaded     = "env.reloaded"
	EnvReloadFailed = "env.reload_failed"
	CellDestroyed   = "cell.destroyed"
)

// Event represents a published event.
type Event struct {
	// Name is the event name (e.g., "env.reloaded", "cell.destroyed").
	Name string

	// Key is the env key the event concerns, if any.
	Key string

	// Err is set for failure events.
	Err error

	// Data contains event details (key counts, destroy trigger, diffs).
	Data map[string]any
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

type subscription struct {
	pattern string
	match   glob.Glob
	handler Handler
}

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	logger zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a handler for every event whose name matches pattern.
// Patterns are globs with "." as separator:
//   - "env.reloaded" - exact match
//   - "env.*" - all env events
//   - "*" - all events
func (b *Bus) Subscribe(pattern string, handler Handler) error {
	var g glob.Glob
	var err error
	if pattern == "*" {
		g, err = glob.Compile("**")
	} else {
		g, err = glob.Compile(pattern, '.')
	}
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{pattern: pattern, match: g, handler: handler})
	return nil
}

// Publish emits an event to all matching handlers.
// Handlers are called synchronously in registration order.
// Handler errors are logged and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	matched := b.matching(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("key", event.Key).
		Int("handlers", len(matched)).
		Msg("event emitted")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// HasSubscribers reports whether any handler matches the event name.
func (b *Bus) HasSubscribers(name string) bool {
	return len(b.matching(name)) > 0
}

func (b *Bus) matching(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	for _, s := range b.subs {
		if s.match.Match(name) {
			matched = append(matched, s.handler)
		}
	}
	return matched
}
