// Package destruct provides value cells that irreversibly replace their
// content once a deadline passes.
//
// A Cell starts Alive and moves to Destroyed exactly once. The transition is
// triggered by whichever comes first: a read at or after the deadline, a tick
// of the optional background timer, or an explicit Destroy call. After the
// transition the cell holds its replacement forever; attempts to set a new
// value or deadline fail with ErrAlreadyDestroyed.
package destruct

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/envguard/adapters/clock"
	"github.com/artpar/envguard/adapters/idgen"
	"github.com/artpar/envguard/core/duration"
	"github.com/artpar/envguard/ports"
	"github.com/rs/zerolog"
)

// DefaultInterval is the background poll interval used when Background is
// requested without an explicit Interval.
const DefaultInterval = 500 * time.Millisecond

var (
	// ErrAlreadyDestroyed is returned when mutating a destroyed cell.
	ErrAlreadyDestroyed = errors.New("value already destroyed")

	// ErrDestroyed is returned by the default replacement on read.
	ErrDestroyed = errors.New("value has been destroyed")

	// ErrNoDeadline is returned by New when no deadline option is set.
	ErrNoDeadline = errors.New("destruct deadline required")
)

// Trigger identifies what caused a cell to be destroyed.
type Trigger string

const (
	TriggerRead   Trigger = "read"
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

// Options configures a Cell.
type Options struct {
	// At is the absolute deadline. Takes precedence over After and In.
	At time.Time

	// After is the deadline relative to construction time.
	After time.Duration

	// In is a human duration ("100ms", "2d"); bare numbers are milliseconds.
	In string

	// Replacement is what the cell holds after destruction: a plain value,
	// a func() any, or a func() (any, error). Nil means reads fail with
	// ErrDestroyed.
	Replacement any

	// Background enables the timer. Interval defaults to DefaultInterval.
	Background bool

	// Interval is the background poll interval. Non-zero implies Background.
	Interval time.Duration

	// Name labels the cell in logs, usually the field name.
	Name string

	Clock     ports.Clock
	IDs       ports.IDGenerator
	Logger    zerolog.Logger
	OnDestroy func(c *Cell, trigger Trigger)
}

// Deadline resolves the absolute deadline relative to now.
func (o Options) Deadline(now time.Time) (time.Time, error) {
	switch {
	case !o.At.IsZero():
		return o.At, nil
	case o.After != 0:
		return now.Add(o.After), nil
	case o.In != "":
		d, err := duration.Parse(o.In, time.Millisecond)
		if err != nil {
			return time.Time{}, fmt.Errorf("destruct in: %w", err)
		}
		return now.Add(d), nil
	default:
		return time.Time{}, ErrNoDeadline
	}
}

// PollInterval returns the background interval, or 0 for pull-only cells.
func (o Options) PollInterval() time.Duration {
	if o.Interval > 0 {
		return o.Interval
	}
	if o.Background {
		return DefaultInterval
	}
	return 0
}

// Cell holds a value until its deadline.
type Cell struct {
	mu          sync.Mutex
	id          string
	name        string
	value       any
	replacement any
	deadline    time.Time
	destroyed   bool

	clock     ports.Clock
	logger    zerolog.Logger
	onDestroy func(*Cell, Trigger)

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a cell holding value. value may be a func() any supplier,
// evaluated on every read.
func New(value any, opts Options) (*Cell, error) {
	clk := clock.Or(opts.Clock)

	deadline, err := opts.Deadline(clk.Now())
	if err != nil {
		return nil, err
	}

	c := &Cell{
		id:          idgen.Or(opts.IDs).New(),
		name:        opts.Name,
		value:       value,
		replacement: opts.Replacement,
		deadline:    deadline,
		clock:       clk,
		logger:      opts.Logger,
		onDestroy:   opts.OnDestroy,
		stopCh:      make(chan struct{}),
	}

	if interval := opts.PollInterval(); interval > 0 {
		c.ticker = time.NewTicker(interval)
		go c.watchLoop(c.ticker.C)
	}

	return c, nil
}

// ID returns the cell's unique identifier.
func (c *Cell) ID() string {
	return c.id
}

// Name returns the label the cell was created with.
func (c *Cell) Name() string {
	return c.name
}

// Read returns the current value, destroying the cell first if its
// deadline has passed.
func (c *Cell) Read() (any, error) {
	c.mu.Lock()
	fired := false
	if !c.destroyed && clock.Passed(c.clock, c.deadline) {
		c.destroyLocked()
		fired = true
	}
	v := c.value
	c.mu.Unlock()

	if fired {
		c.notify(TriggerRead)
	}
	return resolve(v)
}

// MustRead is like Read but panics on error.
func (c *Cell) MustRead() any {
	v, err := c.Read()
	if err != nil {
		panic(err)
	}
	return v
}

// Destroy replaces the value immediately. Calling it again is a no-op.
func (c *Cell) Destroy() {
	c.mu.Lock()
	fired := false
	if !c.destroyed {
		c.destroyLocked()
		fired = true
	}
	c.mu.Unlock()

	if fired {
		c.notify(TriggerManual)
	}
}

// Destroyed reports whether the cell has been destroyed. It does not check
// the deadline.
func (c *Cell) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Deadline returns the current deadline.
func (c *Cell) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

// SetValue replaces the live value.
func (c *Cell) SetValue(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return fmt.Errorf("set value on %s: %w", c.label(), ErrAlreadyDestroyed)
	}
	c.value = v
	return nil
}

// SetDeadline moves the deadline.
func (c *Cell) SetDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return fmt.Errorf("set deadline on %s: %w", c.label(), ErrAlreadyDestroyed)
	}
	c.deadline = t
	return nil
}

// Close stops the background timer without destroying the value.
func (c *Cell) Close() {
	c.stop()
}

// String never reveals the held value.
func (c *Cell) String() string {
	return fmt.Sprintf("destruct.Cell(%s)", c.label())
}

func (c *Cell) label() string {
	if c.name != "" {
		return c.name
	}
	return c.id
}

// destroyLocked performs the one-way transition. Caller holds c.mu.
func (c *Cell) destroyLocked() {
	c.destroyed = true
	c.value = c.replacement
	if c.value == nil {
		c.value = destroyedValue
	}
	c.stop()
}

func (c *Cell) stop() {
	c.stopOnce.Do(func() {
		if c.ticker != nil {
			c.ticker.Stop()
		}
		close(c.stopCh)
	})
}

func (c *Cell) notify(trigger Trigger) {
	c.logger.Info().
		Str("cell", c.id).
		Str("name", c.name).
		Str("trigger", string(trigger)).
		Msg("value destroyed")

	if c.onDestroy != nil {
		c.onDestroy(c, trigger)
	}
}

func (c *Cell) watchLoop(tick <-chan time.Time) {
	for {
		select {
		case <-tick:
			c.mu.Lock()
			if c.destroyed {
				c.mu.Unlock()
				return
			}
			if !clock.Passed(c.clock, c.deadline) {
				c.mu.Unlock()
				continue
			}
			c.destroyLocked()
			c.mu.Unlock()
			c.notify(TriggerTimer)
			return

		case <-c.stopCh:
			return
		}
	}
}

func destroyedValue() (any, error) {
	return nil, ErrDestroyed
}

// resolve evaluates suppliers.
func resolve(v any) (any, error) {
	switch fn := v.(type) {
	case func() (any, error):
		return fn()
	case func() any:
		return fn(), nil
	default:
		return v, nil
	}
}
