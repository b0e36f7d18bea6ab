// Package retry implements the Retry Engine (§4.I): classify-then-retry
// exponential backoff around a fallible operation.
//
// Grounded on the teacher's use of structured, typed errors throughout
// internal/rag (RAGError.Code driving control flow rather than message
// inspection) generalized into a standalone engine built on
// github.com/cenkalti/backoff/v4, classifying by ragerr.Kind/Code
// exclusively rather than the source system's exception-identity-plus-
// substring check (§9's "Ambiguities observed in source" flags this as
// the weaker design).
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// Config controls the backoff schedule. InitialDelay doubles on every
// retry, capped at MaxDelay (§4.I: "cap 10 s").
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultConfig mirrors §4.I's defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

// Operation is a fallible unit of work the engine retries.
type Operation func(ctx context.Context) error

// Do runs op, retrying on retryable failures per §4.I: on error, classify
// by ragerr.Kind/Code; a non-retryable kind rethrows immediately; an
// unclassified or retryable error sleeps the current delay, doubles it
// (capped), and retries up to MaxAttempts-1 more times. After exhaustion
// the last error is returned unchanged.
func Do(ctx context.Context, cfg Config, op Operation) error {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultConfig()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.MaxInterval = cfg.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	var lastErr error

	retryable := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bounded := backoff.WithMaxRetries(b, uint64(cfg.MaxAttempts-1))
	err := backoff.Retry(retryable, backoff.WithContext(bounded, ctx))
	if err == nil {
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return err
}

// isRetryable classifies purely by the typed ragerr.Kind/Code, never by
// message inspection. An error this engine does not recognize as a
// ragerr.Error is treated as retryable, since it most likely originated
// from a transport-level failure (connection reset, context deadline)
// rather than a classified application error.
func isRetryable(err error) bool {
	rerr, ok := ragerr.As(err)
	if !ok {
		return true
	}
	return rerr.IsRetryable()
}
