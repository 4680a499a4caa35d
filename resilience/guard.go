package resilience

import (
	"context"
	"sync"

	"github.com/jonwraymond/heapcache/cache"
)

// Guard composes producer protections. From outermost to innermost a call
// passes the rate limiter, the bulkhead, the breaker, the retry loop and
// the per-attempt timeout. Any of them may be absent.
//
// The cache never retries or times out on its own; a Guard puts those
// decisions on the caller's side of GetOrInsertWith.
type Guard struct {
	limiter  *RateLimiter
	bulkhead *Bulkhead
	breaker  *Breaker
	retry    *Retry
	timeout  *Timeout
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// NewGuard creates a Guard from options.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithRateLimit throttles producer calls.
func WithRateLimit(rl *RateLimiter) GuardOption {
	return func(g *Guard) { g.limiter = rl }
}

// WithBulkhead caps concurrent producer calls.
func WithBulkhead(b *Bulkhead) GuardOption {
	return func(g *Guard) { g.bulkhead = b }
}

// WithBreaker fails fast while a producer keeps failing.
func WithBreaker(b *Breaker) GuardOption {
	return func(g *Guard) { g.breaker = b }
}

// WithRetry retries failed attempts.
func WithRetry(r *Retry) GuardOption {
	return func(g *Guard) { g.retry = r }
}

// WithTimeout bounds each attempt.
func WithTimeout(t *Timeout) GuardOption {
	return func(g *Guard) { g.timeout = t }
}

// Execute runs op through the configured protections.
func (g *Guard) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	if g.timeout != nil {
		inner := run
		run = func(ctx context.Context) error { return g.timeout.Execute(ctx, inner) }
	}
	if g.retry != nil {
		inner := run
		run = func(ctx context.Context) error { return g.retry.Execute(ctx, inner) }
	}
	if g.breaker != nil {
		inner := run
		run = func(ctx context.Context) error { return g.breaker.Execute(ctx, inner) }
	}
	if g.bulkhead != nil {
		inner := run
		run = func(ctx context.Context) error { return g.bulkhead.Execute(ctx, inner) }
	}
	if g.limiter != nil {
		inner := run
		run = func(ctx context.Context) error { return g.limiter.Execute(ctx, inner) }
	}
	return run(ctx)
}

// Wrap returns a producer that runs p under g. A nil Guard returns p.
//
// When a timeout abandons an attempt, that attempt's value is dropped even
// if it arrives later, so a late result never reaches the cache.
func Wrap[V any](g *Guard, p cache.Producer[V]) cache.Producer[V] {
	if g == nil || p == nil {
		return p
	}
	return func(ctx context.Context) (V, error) {
		var (
			mu      sync.Mutex
			attempt int
			value   V
		)
		err := g.Execute(ctx, func(ctx context.Context) error {
			mu.Lock()
			attempt++
			id := attempt
			mu.Unlock()

			v, err := p(ctx)
			if err == nil {
				mu.Lock()
				if id == attempt {
					value = v
				}
				mu.Unlock()
			}
			return err
		})
		if err != nil {
			var zero V
			return zero, err
		}
		mu.Lock()
		defer mu.Unlock()
		return value, nil
	}
}
