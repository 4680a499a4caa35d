package resilience

import (
	"context"
	"errors"
	"time"
)

const defaultTimeout = 30 * time.Second

// Timeout bounds how long a caller waits for one attempt.
//
// The operation runs in its own goroutine with a context that is cancelled
// at the deadline. If it ignores cancellation it keeps running after
// Execute has returned ErrTimeout, and its result is discarded.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a Timeout. Non-positive durations use 30 seconds.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = defaultTimeout
	}
	return &Timeout{d: d}
}

// Duration returns the configured timeout.
func (t *Timeout) Duration() time.Duration { return t.d }

// Execute runs op with a deadline.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
