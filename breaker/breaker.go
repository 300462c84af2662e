// Package breaker provides a minimal, thread-safe circuit breaker and an
// onion handler that guards the rest of a chain with it.
//
// States:
//   - Closed: calls flow through; consecutive failures are counted.
//   - Open: calls are rejected until OpenTimeout has passed, then the
//     breaker moves to HalfOpen.
//   - HalfOpen: up to HalfOpenMaxSuccess probe calls go through; enough
//     successes close the breaker, any failure opens it again.
package breaker

import (
	"sync"
	"time"
)

// State is the breaker's current mode.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Config holds the breaker parameters.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips a
	// closed breaker.
	FailureThreshold int

	// OpenTimeout is how long the breaker stays open.
	OpenTimeout time.Duration

	// HalfOpenMaxSuccess is the number of probe successes needed to close
	// the breaker again.
	HalfOpenMaxSuccess int
}

// Breaker is safe for concurrent use.
type Breaker struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	state    State
	streak   int // failures while closed, successes while half-open
	inflight int // probes admitted while half-open
	openedAt time.Time
}

// New creates a closed Breaker. A HalfOpenMaxSuccess below 1 is treated as 1.
func New(cfg Config) *Breaker {
	if cfg.HalfOpenMaxSuccess < 1 {
		cfg.HalfOpenMaxSuccess = 1
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// State returns the current state, moving Open to HalfOpen when the timeout
// has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

// Allow reports whether a call may go through. In HalfOpen it admits at most
// HalfOpenMaxSuccess probes.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()

	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		if b.inflight >= b.cfg.HalfOpenMaxSuccess {
			return false
		}
		b.inflight++
		return true
	}
	return false
}

// OnSuccess records a successful call.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.streak = 0
	case HalfOpen:
		b.streak++
		if b.streak >= b.cfg.HalfOpenMaxSuccess {
			b.set(Closed)
		}
	}
}

// OnFailure records a failed call.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.streak++
		if b.streak >= b.cfg.FailureThreshold {
			b.set(Open)
		}
	case HalfOpen:
		b.set(Open)
	}
}

// advance must be called with b.mu held.
func (b *Breaker) advance() {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.set(HalfOpen)
	}
}

func (b *Breaker) set(s State) {
	b.state = s
	b.streak = 0
	b.inflight = 0
	if s == Open {
		b.openedAt = b.now()
	}
}
