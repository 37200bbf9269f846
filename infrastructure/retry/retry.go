// Package retry runs an operation under a bounded attempt budget with a
// per-call-site backoff and retryable-error predicate.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"course-service/domain/model"
)

// Delay returns how long to wait after the given failed attempt (1-based).
type Delay func(attempt int, err error) time.Duration

type Policy struct {
	MaxAttempts int
	Delay       Delay
	// Retryable decides whether err is worth another attempt. Nil retries everything.
	Retryable func(err error) bool
}

// Exponential waits base*2^(attempt-1), capped at max, plus up to jitter.
func Exponential(base, max, jitter time.Duration) Delay {
	return func(attempt int, _ error) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		sleep := base * time.Duration(1<<(attempt-1))
		if max > 0 && sleep > max {
			sleep = max
		}
		if jitter > 0 {
			sleep += time.Duration(rand.Int63n(int64(jitter)))
		}
		return sleep
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, the budget is
// spent, or ctx is done. It reports how many attempts were made. A context
// error is always part of the returned error once ctx is done.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	max := p.MaxAttempts
	if max < 1 {
		max = 1
	}

	var err error
	for attempt := 1; attempt <= max; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return attempt - 1, errors.Join(cerr, err)
		}

		err = fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if errors.Is(err, context.Canceled) || (p.Retryable != nil && !p.Retryable(err)) {
			return attempt, err
		}
		if attempt == max {
			break
		}

		var wait time.Duration
		if p.Delay != nil {
			wait = p.Delay(attempt, err)
		}
		if serr := Sleep(ctx, wait); serr != nil {
			return attempt, errors.Join(serr, err)
		}
	}
	return max, err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsTransient matches failures a later attempt may not see: remote 5xx/429
// wrapped as model.ErrTransient, timeouts and network errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, model.ErrAssetNotFound) {
		return false
	}
	if errors.Is(err, model.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}
