package api

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without contacting the backend while the
// breaker is open.
var ErrCircuitOpen = errors.New("backend circuit is open")

// BreakerState is the state of a Breaker.
type BreakerState int32

const (
	// BreakerClosed lets every request through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects requests until the reset timeout elapses.
	BreakerOpen
	// BreakerHalfOpen lets trial requests through to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open.
	ResetTimeout time.Duration

	// SuccessThreshold is the number of half-open successes that close it.
	SuccessThreshold int

	// OnStateChange is called after every transition.
	OnStateChange func(from, to BreakerState)
}

// DefaultBreakerConfig returns the backend defaults.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 1,
	}
}

// Breaker stops calling an unavailable backend so the console fails fast.
// Only transport failures and 5xx responses count as failures.
type Breaker struct {
	config    BreakerConfig
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time
	mu        sync.Mutex
}

// NewBreaker creates a closed breaker.
func NewBreaker(config *BreakerConfig) *Breaker {
	if config == nil {
		config = DefaultBreakerConfig()
	}
	cfg := *config
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	return &Breaker{config: cfg, now: time.Now}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow returns ErrCircuitOpen while the breaker is open. Once the reset
// timeout has passed the breaker moves to half-open and allows the request.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerOpen {
		return nil
	}
	if b.now().Sub(b.openedAt) < b.config.ResetTimeout {
		return ErrCircuitOpen
	}
	b.setState(BreakerHalfOpen)
	return nil
}

// RecordSuccess records a request the backend answered.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.failures = 0
			b.successes = 0
			b.setState(BreakerClosed)
		}
	}
}

// RecordError records a failed request.
func (b *Breaker) RecordError() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.config.MaxFailures {
			b.open()
		}
	case BreakerHalfOpen:
		b.successes = 0
		b.open()
	}
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.successes = 0
	b.setState(BreakerClosed)
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.setState(BreakerOpen)
}

// setState must be called with b.mu held.
func (b *Breaker) setState(to BreakerState) {
	from := b.state
	b.state = to
	if b.config.OnStateChange != nil && from != to {
		b.config.OnStateChange(from, to)
	}
}
