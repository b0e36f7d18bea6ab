package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

func TestDo_SucceedsWithoutRetryingOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestDo_RetriesRetryableErrorsUpToMaxAttempts(t *testing.T) {
	calls := 0
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return ragerr.New(ragerr.KindUpstream, ragerr.CodeTimeout, "upstream timed out")
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts (MaxAttempts), got %d", calls)
	}
}

func TestDo_NeverRetriesNonRetryableError(t *testing.T) {
	calls := 0
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	wantErr := ragerr.New(ragerr.KindInput, ragerr.CodeValidationError, "bad input")
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if calls != 1 {
		t.Errorf("expected exactly 1 call for a non-retryable error, got %d", calls)
	}
	if err == nil {
		t.Fatal("expected the non-retryable error to be returned")
	}
	if ragerr.CodeOf(err) != ragerr.CodeValidationError {
		t.Errorf("expected the original error code to surface, got %v", ragerr.CodeOf(err))
	}
}

func TestDo_TreatsUnclassifiedErrorsAsRetryable(t *testing.T) {
	calls := 0
	cfg := Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	plain := errors.New("boom")
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return plain
	})
	if calls != 2 {
		t.Errorf("expected a plain error to be retried up to MaxAttempts, got %d calls", calls)
	}
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
}

func TestDo_StopsRetryingOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	cfg := Config{MaxAttempts: 5, InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}
	err := Do(ctx, cfg, func(ctx context.Context) error {
		calls++
		return ragerr.New(ragerr.KindUpstream, ragerr.CodeTimeout, "timed out")
	})
	if err == nil {
		t.Fatal("expected an error when the context is already cancelled")
	}
	if calls > 1 {
		t.Errorf("expected at most 1 call once the context is cancelled, got %d", calls)
	}
}

func TestDefaultConfig_AppliesWhenMaxAttemptsNotSet(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{}, func(ctx context.Context) error {
		calls++
		return ragerr.New(ragerr.KindUpstream, ragerr.CodeTimeout, "timed out")
	})
	if err == nil {
		t.Fatal("expected an error after exhausting the default retry budget")
	}
	if calls != DefaultConfig().MaxAttempts {
		t.Errorf("expected %d attempts under the default config, got %d", DefaultConfig().MaxAttempts, calls)
	}
}
