package policy

import (
	"context"
	"errors"
	"testing"
	"time"
)

func alwaysRetryable(error) Class { return Retryable }

func TestPolicy_TimeoutFor_Escalation(t *testing.T) {
	p := Policy{BaseTimeout: 30 * time.Second, TimeoutStep: 10 * time.Second}

	// effective_timeout(a) = base + a*increment, a 0-based.
	for a := 0; a < 6; a++ {
		want := 30*time.Second + time.Duration(a)*10*time.Second
		if got := p.TimeoutFor(a); got != want {
			t.Errorf("TimeoutFor(%d) = %v, want %v", a, got, want)
		}
	}
}

func TestPolicy_TimeoutFor_NegativeAttemptClamped(t *testing.T) {
	p := Policy{BaseTimeout: 5 * time.Second, TimeoutStep: time.Second}
	if got := p.TimeoutFor(-3); got != 5*time.Second {
		t.Errorf("TimeoutFor(-3) = %v, want base timeout", got)
	}
}

func TestPolicy_Do_RetryBound(t *testing.T) {
	// max_retries=3: a permanently failing op gets exactly 4 attempts.
	p := Policy{MaxRetries: 3}

	var calls int
	attempts, err := p.Do(context.Background(), alwaysRetryable, func(_ context.Context, _ int, _ time.Duration) error {
		calls++
		return errors.New("boom")
	})

	if calls != 4 {
		t.Errorf("op called %d times, want 4", calls)
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
}

func TestPolicy_Do_SuccessStopsRetrying(t *testing.T) {
	p := Policy{MaxRetries: 5}

	var calls int
	attempts, err := p.Do(context.Background(), alwaysRetryable, func(_ context.Context, _ int, _ time.Duration) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3", attempts, calls)
	}
}

func TestPolicy_Do_OpReceivesEscalatingTimeouts(t *testing.T) {
	p := Policy{MaxRetries: 2, BaseTimeout: time.Second, TimeoutStep: 2 * time.Second}

	var seen []time.Duration
	_, _ = p.Do(context.Background(), alwaysRetryable, func(_ context.Context, _ int, timeout time.Duration) error {
		seen = append(seen, timeout)
		return errors.New("boom")
	})

	want := []time.Duration{time.Second, 3 * time.Second, 5 * time.Second}
	if len(seen) != len(want) {
		t.Fatalf("got %d attempts, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("attempt %d timeout = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestPolicy_Do_NonRetryableStopsImmediately(t *testing.T) {
	p := Policy{MaxRetries: 5}
	permanent := errors.New("404")

	classify := func(err error) Class {
		if errors.Is(err, permanent) {
			return Permanent
		}
		return Retryable
	}

	var calls int
	attempts, err := p.Do(context.Background(), classify, func(_ context.Context, _ int, _ time.Duration) error {
		calls++
		return permanent
	})

	if calls != 1 || attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want 1", calls, attempts)
	}
	if !errors.Is(err, permanent) {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestPolicy_Do_FatalStopsImmediately(t *testing.T) {
	p := Policy{MaxRetries: 5}
	auth := errors.New("401")

	var calls int
	_, err := p.Do(context.Background(), func(error) Class { return Fatal }, func(_ context.Context, _ int, _ time.Duration) error {
		calls++
		return auth
	})

	if calls != 1 {
		t.Errorf("fatal error retried: %d calls", calls)
	}
	if !errors.Is(err, auth) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestPolicy_Do_CanceledDuringBackoff(t *testing.T) {
	p := Policy{MaxRetries: 3, Interval: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	var calls int
	_, err := p.Do(ctx, alwaysRetryable, func(_ context.Context, _ int, _ time.Duration) error {
		calls++
		return errors.New("boom")
	})

	if calls != 1 {
		t.Errorf("op called %d times, want 1 (backoff canceled)", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPolicy_Attempts_Floor(t *testing.T) {
	if got := (Policy{MaxRetries: -1}).Attempts(); got != 1 {
		t.Errorf("Attempts() = %d, want 1", got)
	}
	if got := (Policy{}).Attempts(); got != 1 {
		t.Errorf("Attempts() = %d, want 1", got)
	}
}
