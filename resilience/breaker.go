package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the breaker state.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects every call with ErrCircuitOpen.
	StateOpen
	// StateHalfOpen lets a single trial call through after the cooldown.
	StateHalfOpen
)

// String returns the string representation of the state.
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

// BreakerConfig configures the breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the
	// breaker. Default: 5
	Threshold int

	// Cooldown is how long the breaker stays open before probing.
	// Default: 30 seconds
	Cooldown time.Duration

	// IsFailure reports whether err counts against the producer.
	// Default: any error except context cancellation.
	IsFailure func(err error) bool

	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(from, to State)
}

// Breaker stops calling a producer that keeps failing. While it is open,
// misses fail fast and the cache is left untouched.
type Breaker struct {
	config BreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.Threshold <= 0 {
		config.Threshold = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	return &Breaker{config: config, now: time.Now}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	state, changed := b.advanceLocked()
	b.mu.Unlock()
	b.notify(changed, StateOpen, state)
	return state
}

// Execute runs op unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := op(ctx)
	b.record(err)
	return err
}

// Reset closes the breaker and forgets past failures.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state, b.failures, b.probing = StateClosed, 0, false
	b.mu.Unlock()
	b.notify(from != StateClosed, from, StateClosed)
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	state, changed := b.advanceLocked()
	var err error
	switch {
	case state == StateOpen:
		err = ErrCircuitOpen
	case state == StateHalfOpen && b.probing:
		err = ErrCircuitOpen
	case state == StateHalfOpen:
		b.probing = true
	}
	b.mu.Unlock()
	b.notify(changed, StateOpen, StateHalfOpen)
	return err
}

func (b *Breaker) record(err error) {
	failed := b.config.IsFailure(err)

	b.mu.Lock()
	from := b.state
	switch {
	case from == StateHalfOpen && failed:
		b.state, b.openedAt = StateOpen, b.now()
	case from == StateHalfOpen && err == nil:
		b.state, b.failures = StateClosed, 0
	case failed:
		b.failures++
		if b.failures >= b.config.Threshold {
			b.state, b.openedAt = StateOpen, b.now()
		}
	case err == nil:
		b.failures = 0
	}
	if from == StateHalfOpen {
		b.probing = false
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from != to, from, to)
}

// advanceLocked moves an open breaker to half-open once the cooldown has
// passed and reports whether it did.
func (b *Breaker) advanceLocked() (State, bool) {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.config.Cooldown {
		b.state, b.probing = StateHalfOpen, false
		return b.state, true
	}
	return b.state, false
}

func (b *Breaker) notify(changed bool, from, to State) {
	if changed && b.config.OnStateChange != nil {
		b.config.OnStateChange(from, to)
	}
}
