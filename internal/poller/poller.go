// Copyright Contributors to the TaskBench project

// Package poller provides the single wait primitive shared by the setup
// and verify phases: fetch, check, sleep, repeat, until the predicate
// holds or the timeout expires. Fixed-interval polling keeps latency
// predictable for benchmark scenarios; there is no backoff.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Defaults match the timing the benchmark scenarios were written against.
const (
	DefaultInterval      = 2 * time.Second
	DefaultSetupTimeout  = 120 * time.Second
	DefaultVerifyTimeout = 60 * time.Second
)

// Snapshot is the object state a check observed, possibly nil when the
// object did not exist.
type Snapshot = *unstructured.Unstructured

// Check fetches the relevant object(s) and evaluates the predicate.
// done=true stops polling with success. A non-nil error stops polling
// immediately (terminal cluster-side failure); transient conditions are
// expressed as done=false with no error. The returned snapshot is retained
// as the last-observed state for timeout diagnostics.
type Check func(ctx context.Context) (snap Snapshot, done bool, err error)

// Config parameterizes one wait.
type Config struct {
	// Name labels the wait in errors, e.g. "setup readiness" or a field path.
	Name string

	// Interval between polls. Defaults to DefaultInterval when zero.
	Interval time.Duration

	// Timeout bounds the whole wait. Must be positive.
	Timeout time.Duration
}

// TimeoutError reports that the predicate never held within the timeout.
// It carries the last observed snapshot so callers can report expected vs
// observed without refetching.
type TimeoutError struct {
	Name         string
	Timeout      time.Duration
	Attempts     int
	LastObserved Snapshot
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("wait for %s: condition not met after %s (%d attempts)", e.Name, e.Timeout, e.Attempts)
}

// IsTimeout reports whether err (possibly wrapped) is a poll timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsCanceled reports whether err is a caller cancellation, which is a
// distinct outcome from a timeout.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Await polls check at a fixed interval until it reports done, the timeout
// expires, the check returns a terminal error, or ctx is canceled. The
// first check runs immediately. On success the final snapshot is returned;
// on timeout the error is a *TimeoutError carrying the last snapshot.
func Await(ctx context.Context, cfg Config, check Check) (Snapshot, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("wait for %s: timeout must be positive", cfg.Name)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	var last Snapshot
	attempts := 0
	err := wait.PollUntilContextTimeout(ctx, interval, cfg.Timeout, true,
		func(pollCtx context.Context) (bool, error) {
			attempts++
			snap, done, checkErr := check(pollCtx)
			if snap != nil {
				last = snap
			}
			if checkErr != nil {
				return false, checkErr
			}
			return done, nil
		})
	if err == nil {
		return last, nil
	}
	if ctx.Err() != nil {
		// Caller cancellation, not a timeout.
		return last, fmt.Errorf("wait for %s: %w", cfg.Name, ctx.Err())
	}
	if wait.Interrupted(err) {
		return last, &TimeoutError{
			Name:         cfg.Name,
			Timeout:      cfg.Timeout,
			Attempts:     attempts,
			LastObserved: last,
		}
	}
	return last, err
}
