// Package retry runs calls to external collaborators with a hard attempt cap.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rewired-gh/finsent/internal/models"
)

// Policy bounds a retried call. The wait before attempt n+1 is Delay, or
// Delay*n when Linear is set.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Linear      bool
	Clock       clockwork.Clock
	OnRetry     func(attempt int, err error, wait time.Duration)
}

// Retryable decides whether an error is transient.
type Retryable func(err error) bool

// Always treats every error as transient.
func Always(error) bool { return true }

// PermanentError wraps the error that stopped retrying early.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Do calls op until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. Final failures wrap models.ErrExternalService.
func Do[T any](ctx context.Context, p Policy, retryable Retryable, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, fmt.Errorf("retry: MaxAttempts must be at least 1, got %d", p.MaxAttempts)
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, fmt.Errorf("%w: %w", models.ErrExternalService, &PermanentError{Err: err})
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := p.Delay
		if p.Linear {
			wait = p.Delay * time.Duration(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		select {
		case <-clock.After(wait):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled after %d attempts: %w", attempt, ctx.Err())
		}
	}
	return zero, fmt.Errorf("%w: failed after %d attempts: %w", models.ErrExternalService, p.MaxAttempts, lastErr)
}
