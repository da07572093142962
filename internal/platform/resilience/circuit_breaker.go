package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker shields an upstream dependency. Consecutive failures trip
// it open, a cooldown then admits a small probe quota, and the probe
// outcomes decide whether it closes again or reopens.
type CircuitBreaker struct {
	mu  sync.Mutex
	now func() time.Time

	failureThreshold int
	openTimeout      time.Duration
	probeQuota       int

	state         CircuitState
	failureStreak int
	openedAt      time.Time
	probesInUse   int
	probesPassed  int
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if openTimeout <= 0 {
		openTimeout = 15 * time.Second
	}
	if halfOpenMaxReq < 1 {
		halfOpenMaxReq = 1
	}

	return &CircuitBreaker{
		now:              time.Now,
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		probeQuota:       halfOpenMaxReq,
		state:            CircuitStateClosed,
	}
}

// Allow reports whether a request may proceed right now. In the half-open
// state it also claims one probe slot; a matching RecordSuccess or
// RecordFailure releases it.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.openTimeout {
			return ErrCircuitOpen
		}
		b.state = CircuitStateHalfOpen
		b.probesInUse = 0
		b.probesPassed = 0
	}

	if b.state == CircuitStateHalfOpen {
		if b.probesInUse >= b.probeQuota {
			return ErrCircuitOpen
		}
		b.probesInUse++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failureStreak = 0
	case CircuitStateHalfOpen:
		b.releaseProbe()
		b.probesPassed++
		if b.probesPassed >= b.probeQuota && b.probesInUse == 0 {
			b.state = CircuitStateClosed
			b.failureStreak = 0
			b.openedAt = time.Time{}
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failureStreak++
		if b.failureStreak >= b.failureThreshold {
			b.trip()
		}
	case CircuitStateHalfOpen:
		// A single failed probe sends the breaker straight back to open.
		b.releaseProbe()
		b.trip()
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.openTimeout {
		return CircuitStateHalfOpen
	}

	return b.state
}

func (b *CircuitBreaker) trip() {
	b.state = CircuitStateOpen
	b.openedAt = b.now()
	b.probesInUse = 0
	b.probesPassed = 0
}

func (b *CircuitBreaker) releaseProbe() {
	if b.probesInUse > 0 {
		b.probesInUse--
	}
}
