package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{Attempts: attempts, Delay: time.Millisecond, Backoff: 1.0}
}

func TestRetryReturnsFirstSuccess(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(1), "test", func() (int, error) {
		calls++
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("expected (42, nil), got (%d, %v)", got, err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestRetryRetriesTransientErrors(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(2), "test", func() (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("query: %w", driver.ErrBadConn)
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("expected recovery, got (%q, %v)", got, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryStopsAfterBudget(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(1), "test", func() (int, error) {
		calls++
		return 0, driver.ErrBadConn
	})
	if !errors.Is(err, driver.ErrBadConn) {
		t.Fatalf("expected the transient error to surface, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected initial call plus one retry, got %d calls", calls)
	}
}

func TestRetryDoesNotRetryPermanentErrors(t *testing.T) {
	permanent := errors.New("syntax error at or near SELECT")
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), "test", func() (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("permanent errors must not be retried, got %d calls", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, RetryPolicy{Attempts: 1, Delay: time.Minute, Backoff: 1.0}, "test", func() (int, error) {
		return 0, driver.ErrBadConn
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", fmt.Errorf("read: %w", driver.ErrBadConn), true},
		{"conn reset", syscall.ECONNRESET, true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"net timeout", &net.OpError{Op: "read", Err: errors.New("timeout")}, true},
		{"plain error", errors.New("relation does not exist"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
