// Package retry wraps provider calls with classified exponential backoff.
// The engine knows nothing about what an operation does; the caller supplies
// a predicate deciding which errors are transient. Fatal errors propagate on
// the first attempt, and when every attempt fails the caller gets the last
// classified error, not the first.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Policy holds the backoff schedule. Exact numbers are configuration, not
// contract; see config.LimitsConfig for the env-tunable defaults.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2,
		Jitter:          true,
	}
}

// AfterHinter is implemented by errors that carry a provider- or
// limiter-supplied wait hint. The hint overrides the computed backoff in
// both directions: a shorter hint shortens the wait, a longer one extends it.
type AfterHinter interface {
	RetryAfterHint() (time.Duration, bool)
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt cap is reached. Attempts are strictly sequential. The label is
// only used for logging.
func Do[T any](ctx context.Context, p Policy, retryable func(error) bool, label string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.Multiplier = p.Multiplier
	eb.MaxElapsedTime = 0
	if !p.Jitter {
		eb.RandomizationFactor = 0
	}
	eb.Reset()

	var lastErr error
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !retryable(err) {
			log.Debug().Str("op", label).Int("attempt", attempt).Err(err).Msg("fatal error, not retrying")
			return zero, lastErr
		}
		if attempt >= p.MaxAttempts {
			log.Warn().Str("op", label).Int("attempts", attempt).Err(err).Msg("retries exhausted")
			return zero, lastErr
		}

		wait := eb.NextBackOff()
		if hinted, ok := hintOf(err); ok {
			wait = hinted
		}
		log.Warn().Str("op", label).Int("attempt", attempt).Dur("wait", wait).Err(err).Msg("retrying after error")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func hintOf(err error) (time.Duration, bool) {
	for e := err; e != nil; e = unwrap(e) {
		if h, ok := e.(AfterHinter); ok {
			return h.RetryAfterHint()
		}
	}
	return 0, false
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
