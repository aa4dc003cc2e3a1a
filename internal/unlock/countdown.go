package unlock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// VariantCountdown names the click threshold + countdown challenge.
const VariantCountdown = "countdown"

const (
	MinRequiredClicks   = 1
	MaxRequiredClicks   = 20
	MaxCountdownSeconds = 300
)

// Ticker is the subset of time.Ticker used by the countdown.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers; tests substitute a manual implementation.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

type realTicker struct {
	t *time.Ticker
}

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// CountdownConfig describes one countdown challenge.
type CountdownConfig struct {
	RequiredClicks int
	Seconds        int
	// Interval between ticks; defaults to one second.
	Interval time.Duration
}

// Validate checks the configured bounds.
func (c CountdownConfig) Validate() error {
	if c.RequiredClicks < MinRequiredClicks || c.RequiredClicks > MaxRequiredClicks {
		return fmt.Errorf("unlock: required clicks must be between %d and %d, got %d",
			MinRequiredClicks, MaxRequiredClicks, c.RequiredClicks)
	}
	if c.Seconds < 0 || c.Seconds > MaxCountdownSeconds {
		return fmt.Errorf("unlock: countdown seconds must be between 0 and %d, got %d",
			MaxCountdownSeconds, c.Seconds)
	}
	return nil
}

// CountdownOption customises a Countdown.
type CountdownOption func(*Countdown)

// WithClock replaces the wall clock.
func WithClock(clock Clock) CountdownOption {
	return func(c *Countdown) { c.clock = clock }
}

// Countdown counts clicks up to a threshold, then ticks a countdown down to zero.
// The ticker goroutine lives no longer than the instance: it stops on unlock,
// on Close, or when the parent context is cancelled.
type Countdown struct {
	mu        sync.Mutex
	required  int
	seconds   int
	interval  time.Duration
	clicks    int
	remaining int
	state     State
	closed    bool
	gate      *Gate
	clock     Clock
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewCountdown returns an idle countdown bound to parent.
func NewCountdown(parent context.Context, cfg CountdownConfig, onSuccess func(), opts ...CountdownOption) (*Countdown, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(parent)
	c := &Countdown{
		required: cfg.RequiredClicks,
		seconds:  cfg.Seconds,
		interval: interval,
		gate:     NewGate(onSuccess),
		clock:    realClock{},
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Countdown) Variant() string { return VariantCountdown }

// Apply handles Click and Tick events.
func (c *Countdown) Apply(ev Event) (Outcome, error) {
	c.mu.Lock()
	if c.closed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return Outcome{Snapshot: snap}, ErrClosed
	}

	var out Outcome
	switch ev.Kind {
	case EventClick:
		out = c.clickLocked()
	case EventTick:
		out = c.tickLocked()
	default:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return Outcome{Snapshot: snap}, ErrUnsupportedEvent
	}
	out.Snapshot = c.snapshotLocked()
	c.mu.Unlock()

	if out.Unlocked {
		c.gate.Fire()
	}
	return out, nil
}

func (c *Countdown) clickLocked() Outcome {
	if c.state == StateUnlocked || c.clicks >= c.required {
		return Outcome{}
	}

	c.clicks++
	out := Outcome{Accepted: true}
	if c.clicks < c.required {
		c.state = StateInProgress
		return out
	}

	out.ThresholdReached = true
	c.remaining = c.seconds
	if c.remaining == 0 {
		c.unlockLocked()
		out.Unlocked = true
		return out
	}

	c.state = StateCounting
	c.startTickerLocked()
	return out
}

func (c *Countdown) tickLocked() Outcome {
	if c.state != StateCounting {
		return Outcome{}
	}
	c.remaining--
	out := Outcome{Accepted: true}
	if c.remaining <= 0 {
		c.remaining = 0
		c.unlockLocked()
		out.Unlocked = true
	}
	return out
}

func (c *Countdown) unlockLocked() {
	c.state = StateUnlocked
	// Stop the ticker goroutine; no tick may land after the terminal transition.
	c.cancel()
}

func (c *Countdown) startTickerLocked() {
	if c.done != nil || c.ctx.Err() != nil {
		return
	}
	ticker := c.clock.NewTicker(c.interval)
	done := make(chan struct{})
	c.done = done
	go c.run(ticker, done)
}

func (c *Countdown) run(ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C():
			out, err := c.Apply(Tick())
			if err != nil || out.Snapshot.Unlocked() {
				return
			}
		}
	}
}

// Close cancels the ticker and waits for its goroutine to exit.
func (c *Countdown) Close() {
	c.mu.Lock()
	c.closed = true
	done := c.done
	c.mu.Unlock()

	c.cancel()
	if done != nil {
		<-done
	}
}

func (c *Countdown) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Countdown) snapshotLocked() Snapshot {
	snap := Snapshot{
		Variant:        VariantCountdown,
		State:          c.state,
		Clicks:         c.clicks,
		RequiredClicks: c.required,
	}
	if c.state == StateCounting || c.state == StateUnlocked {
		remaining := c.remaining
		snap.CountdownRemaining = &remaining
	}
	return snap
}
