package utils

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrRetriesExhausted is returned by RetryPolicy.Do once the attempt budget
// is spent without a successful attempt.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Outcome classifies a single attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeRateLimited waits the fixed cooldown and does not grow the backoff.
	OutcomeRateLimited
	// OutcomeRetryable waits an exponential backoff.
	OutcomeRetryable
	// OutcomeFatal stops immediately.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	}
	return "unknown"
}

// Attempt is the result of one try.
type Attempt struct {
	Outcome Outcome
	Err     error
}

func Succeeded() Attempt { return Attempt{Outcome: OutcomeOK} }
func RateLimited(err error) Attempt { return Attempt{Outcome: OutcomeRateLimited, Err: err} }
func Retryable(err error) Attempt { return Attempt{Outcome: OutcomeRetryable, Err: err} }
func Fatal(err error) Attempt { return Attempt{Outcome: OutcomeFatal, Err: err} }

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy holds the parameters for the retry strategy.
//
// A retryable failure on backoff step n (starting at 0) waits
// BackoffBase^(n+1) seconds. A rate-limited attempt waits Cooldown and leaves
// the backoff step where it was. Both consume one attempt.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase float64
	Cooldown    time.Duration
	Sleep       SleepFunc
	Logger      *Logger
	// OnRetry, if set, is called before each wait.
	OnRetry func(o Outcome)
}

// Backoff returns the wait after the given number of prior retryable failures.
func (r *RetryPolicy) Backoff(step int) time.Duration {
	return time.Duration(math.Pow(r.BackoffBase, float64(step+1)) * float64(time.Second))
}

// Do runs fn until it succeeds, fails fatally, or MaxAttempts is reached.
func (r *RetryPolicy) Do(ctx context.Context, operationName string, fn func(attempt int) Attempt) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	logger := r.Logger
	if logger == nil {
		logger = Nop()
	}

	attempts := max(r.MaxAttempts, 1)
	var lastErr error
	step := 0

	for attempt := 0; attempt < attempts; attempt++ {
		res := fn(attempt)

		switch res.Outcome {
		case OutcomeOK:
			return nil
		case OutcomeFatal:
			return res.Err
		}

		lastErr = res.Err
		if attempt == attempts-1 {
			break
		}

		var wait time.Duration
		if res.Outcome == OutcomeRateLimited {
			wait = r.Cooldown
			logger.Warn("[retry] %s rate limited (attempt %d/%d), waiting %v",
				operationName, attempt+1, attempts, wait)
		} else {
			wait = r.Backoff(step)
			step++
			logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
				operationName, attempt+1, attempts, res.Err, wait)
		}

		if r.OnRetry != nil {
			r.OnRetry(res.Outcome)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s: %w after %d attempts: %w", operationName, ErrRetriesExhausted, attempts, lastErr)
}
