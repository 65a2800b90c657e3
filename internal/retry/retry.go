// Package retry executes fallible operations with exponential backoff.
// Two strategies exist, chosen statically at the call site: Do for plain
// blocking calls and DoContext for context-aware calls. Both share the same
// attempt counting and delay computation.
package retry

import (
	"context"
	"errors"
	"net"
	"time"
)

// Policy controls how an operation is retried. A zero Multiplier means no
// backoff growth. Retryable decides which errors are worth another attempt;
// nil retries everything.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
	Multiplier float64
	Retryable  func(error) bool
}

// DefaultPolicy mirrors the settings used for external API calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		Delay:      500 * time.Millisecond,
		Multiplier: 2.0,
		Retryable:  IsTransient,
	}
}

// IsTransient reports whether an error looks like a recoverable network
// failure (timeouts, connection errors). A cancelled parent context is never
// transient; a per-call deadline is.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var transient interface{ Transient() bool }
	if errors.As(err, &transient) {
		return transient.Transient()
	}
	return false
}

func (p Policy) delayFor(attempt int) time.Duration {
	d := p.Delay
	if p.Multiplier > 0 {
		for i := 0; i < attempt; i++ {
			d = time.Duration(float64(d) * p.Multiplier)
		}
	}
	return d
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Do runs fn up to MaxRetries+1 times, sleeping between attempts. The last
// error is returned unchanged so callers can still match on it.
func Do(p Policy, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) || attempt == p.MaxRetries {
			return lastErr
		}
		time.Sleep(p.delayFor(attempt))
	}
	return lastErr
}

// DoContext behaves exactly like Do but aborts the backoff sleep when ctx is
// done and passes ctx through to the operation.
func DoContext(ctx context.Context, p Policy, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) || attempt == p.MaxRetries {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delayFor(attempt)):
		}
	}
	return lastErr
}
