package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"
)

// RetryPolicy governs re-running whole read operations after transient
// connectivity failures. It wraps complete operations, not individual
// statements.
type RetryPolicy struct {
	// Attempts is the number of retries after the first failure.
	Attempts int
	// Delay is the pause before the first retry.
	Delay time.Duration
	// Backoff multiplies the delay after each retry. 1.0 keeps it fixed.
	Backoff float64
}

// DefaultRetryPolicy mirrors the settings the dashboard has always run
// with: one retry after 700ms, no exponential growth.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 1, Delay: 700 * time.Millisecond, Backoff: 1.0}
}

// Retry runs fn, retrying per the policy while the failure looks like a
// transient connectivity error. Permanent errors surface immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, label string, fn func() (T, error)) (T, error) {
	delay := policy.Delay
	for attempt := 0; ; attempt++ {
		v, err := fn()
		if err == nil || !IsTransient(err) || attempt >= policy.Attempts {
			return v, err
		}

		slog.WarnContext(ctx, "transient database error, retrying read",
			"label", label,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err)

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		if policy.Backoff > 0 {
			delay = time.Duration(float64(delay) * policy.Backoff)
		}
	}
}

// IsTransient reports whether an error looks like a connectivity failure
// worth one more try: a dropped or poisoned connection rather than a bad
// query or bad data.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
