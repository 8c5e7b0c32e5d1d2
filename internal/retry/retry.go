// Package retry runs an operation under a bounded attempt budget with
// exponential or flat backoff plus random jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// ErrExhausted is matched (errors.Is) by the error returned when every attempt
// failed with a retryable error.
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError carries the last retryable failure once the budget is spent
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Policy describes the attempt budget and the delay before each retry.
//
// With Exponential set the delay after the failed attempt n (0-based) is
// BaseDelay*2^n + rand[0, MaxJitter); otherwise it is BaseDelay + rand[0, MaxJitter).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
	Exponential bool
}

// Delay returns the backoff to wait after the given failed attempt, excluding jitter
func (p Policy) Delay(attempt int) time.Duration {
	if !p.Exponential {
		return p.BaseDelay
	}
	return p.BaseDelay * time.Duration(1<<uint(attempt))
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// JitterFunc returns a random duration in [0, limit)
type JitterFunc func(limit time.Duration) time.Duration

// Retrier executes operations under a Policy
type Retrier struct {
	policy Policy
	sleep  SleepFunc
	jitter JitterFunc
}

// Option customizes a Retrier
type Option func(*Retrier)

// WithSleep replaces the timer based sleep
func WithSleep(sleep SleepFunc) Option {
	return func(r *Retrier) {
		r.sleep = sleep
	}
}

// WithJitter replaces the random jitter source
func WithJitter(jitter JitterFunc) Option {
	return func(r *Retrier) {
		r.jitter = jitter
	}
}

// New creates a Retrier. A MaxAttempts below 1 is treated as 1.
func New(policy Policy, opts ...Option) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	r := &Retrier{
		policy: policy,
		sleep:  contextSleep,
		jitter: randomJitter(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the retrier's policy
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do calls fn until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. fn receives the 0-based attempt number.
//
// It returns the number of attempts made and:
//   - nil when an attempt succeeded
//   - the attempt's error unchanged when isRetryable rejects it
//   - an *ExhaustedError when the last allowed attempt failed retryably
//   - ctx.Err() when the context is done while waiting
func (r *Retrier) Do(ctx context.Context, isRetryable func(error) bool, fn func(attempt int) error) (int, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return attempt + 1, nil
		}
		if !isRetryable(err) {
			return attempt + 1, err
		}
		lastErr = err

		if attempt == r.policy.MaxAttempts-1 {
			break
		}

		wait := r.policy.Delay(attempt)
		if r.policy.MaxJitter > 0 {
			wait += r.jitter(r.policy.MaxJitter)
		}
		if err := r.sleep(ctx, wait); err != nil {
			return attempt + 1, err
		}
	}

	return r.policy.MaxAttempts, &ExhaustedError{Attempts: r.policy.MaxAttempts, Last: lastErr}
}

// Always treats every error as retryable
func Always(error) bool {
	return true
}

// On returns a predicate that retries only errors matching target
func On(target error) func(error) bool {
	return func(err error) bool {
		return errors.Is(err, target)
	}
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter() JitterFunc {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func(limit time.Duration) time.Duration {
		if limit <= 0 {
			return 0
		}
		mu.Lock()
		defer mu.Unlock()
		return time.Duration(rng.Int63n(int64(limit)))
	}
}
