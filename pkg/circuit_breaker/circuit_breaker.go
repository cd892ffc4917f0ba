package circuit_breaker

import (
	"errors"
	"sync"
	"time"
)

type Status uint8

const (
	Closed   Status = 1
	Open     Status = 2
	HalfOpen Status = 3
)

func (s Status) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrOpenCB = errors.New("circuit breaker is open")

type Settings struct {
	// Window is the number of most recent calls the failure ratio is taken over.
	Window int
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
	// FailureRatio in (0,1]; reaching it opens the breaker.
	FailureRatio float64
	// RecoveryRequests successful probes in a row close the breaker again.
	RecoveryRequests int
	// IsFailure decides which errors count against the service. Nil counts
	// every non-nil error.
	IsFailure func(error) bool
}

type CircuitBreaker interface {
	Call(service func() error) error
	State() Status
	Reset()
}

type circuitBreaker struct {
	mu       sync.Mutex
	settings Settings
	now      func() time.Time

	state    Status
	openedAt time.Time
	// ring of outcomes, true means failed
	buffer       []bool
	pos          int
	successCount int
}

func New(s Settings) CircuitBreaker {
	return newWithClock(s, time.Now)
}

func newWithClock(s Settings, now func() time.Time) *circuitBreaker {
	if s.Window <= 0 {
		s.Window = 100
	}
	if s.FailureRatio <= 0 || s.FailureRatio > 1 {
		s.FailureRatio = 0.5
	}
	if s.RecoveryRequests <= 0 {
		s.RecoveryRequests = 1
	}
	if s.IsFailure == nil {
		s.IsFailure = func(err error) bool { return err != nil }
	}
	return &circuitBreaker{
		settings: s,
		now:      now,
		state:    Closed,
		buffer:   make([]bool, s.Window),
	}
}

func (cb *circuitBreaker) Call(service func() error) error {
	cb.mu.Lock()
	if cb.state == Open {
		if cb.now().Sub(cb.openedAt) < cb.settings.Cooldown {
			cb.mu.Unlock()
			return ErrOpenCB
		}
		cb.state = HalfOpen
		cb.successCount = 0
	}
	cb.mu.Unlock()

	err := service()
	failed := cb.settings.IsFailure(err)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.buffer[cb.pos] = failed
	cb.pos = (cb.pos + 1) % len(cb.buffer)

	if cb.state == HalfOpen {
		if failed {
			cb.trip()
			return err
		}
		cb.successCount++
		if cb.successCount >= cb.settings.RecoveryRequests {
			cb.reset()
		}
		return err
	}

	fails := 0
	for _, f := range cb.buffer {
		if f {
			fails++
		}
	}
	if float64(fails)/float64(len(cb.buffer)) >= cb.settings.FailureRatio {
		cb.trip()
	}
	return err
}

func (cb *circuitBreaker) State() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reset()
}

func (cb *circuitBreaker) trip() {
	cb.state = Open
	cb.successCount = 0
	cb.openedAt = cb.now()
}

func (cb *circuitBreaker) reset() {
	for i := range cb.buffer {
		cb.buffer[i] = false
	}
	cb.successCount = 0
	cb.pos = 0
	cb.state = Closed
}
