// Package breaker provides a circuit breaker for calls to external
// dependencies (graph store, LLM agents, vector index). One failing
// dependency trips only its own breaker and cannot cascade into unrelated
// call sites.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker is open and the call was not attempted.
var ErrOpen = errors.New("circuit breaker open")

// State of a breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker wraps fallible calls with closed/open/half-open state handling.
type Breaker struct {
	name             string
	failureThreshold int
	window           time.Duration
	cooldown         time.Duration

	mu       sync.Mutex
	state    State
	failures []time.Time
	openedAt time.Time
	trialing bool

	now func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a breaker. failureThreshold consecutive-window failures open it;
// after cooldown one trial call is allowed through (half-open).
func New(name string, failureThreshold int, window, cooldown time.Duration, opts ...Option) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	b := &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		window:           window,
		cooldown:         cooldown,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the dependency name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, accounting for cooldown expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Do runs fn unless the breaker is open. While open, fn is not invoked and
// ErrOpen is returned immediately. After the cooldown, exactly one call is
// allowed through; its outcome decides whether the breaker closes or reopens.
func (b *Breaker) Do(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.trialing = true
		return nil
	case StateHalfOpen:
		if b.trialing {
			return ErrOpen
		}
		b.trialing = true
		return nil
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if b.state == StateHalfOpen {
		b.trialing = false
		if err == nil {
			b.state = StateClosed
			b.failures = nil
			return
		}
		b.state = StateOpen
		b.openedAt = now
		return
	}
	if err == nil {
		b.failures = nil
		return
	}
	cutoff := now.Add(-b.window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = append(kept, now)
	if len(b.failures) >= b.failureThreshold {
		b.state = StateOpen
		b.openedAt = now
		b.failures = nil
	}
}
