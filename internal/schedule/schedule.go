// Copyright Contributors to the TaskBench project

// Package schedule runs a benchmark suite on a recurring cron schedule.
// Soak-style runs use it to re-execute the same task set over hours or
// days and watch for drift in the verdicts.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
)

// RunFunc executes one suite iteration. The returned error is logged
// but does not stop the schedule; a broken cluster should not cancel a
// soak run.
type RunFunc func(ctx context.Context) error

// Clock interface for time operations, allows mocking in tests
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the real time
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Scheduler fires a RunFunc according to a standard cron expression.
type Scheduler struct {
	schedule cron.Schedule
	spec     string
	log      logr.Logger
	clock    Clock
}

// Validate reports whether spec is a parseable standard cron expression.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// New parses the cron spec and returns a scheduler for it.
func New(spec string, log logr.Logger) (*Scheduler, error) {
	parsed, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return &Scheduler{
		schedule: parsed,
		spec:     spec,
		log:      log,
		clock:    realClock{},
	}, nil
}

// Next returns the first firing time after the given instant.
func (s *Scheduler) Next(after time.Time) time.Time {
	return s.schedule.Next(after)
}

// NextRuns returns the next n firing times starting from now. Used by
// the CLI to preview a schedule before committing to it.
func (s *Scheduler) NextRuns(n int) []time.Time {
	runs := make([]time.Time, 0, n)
	t := s.clock.Now()
	for i := 0; i < n; i++ {
		t = s.schedule.Next(t)
		runs = append(runs, t)
	}
	return runs
}

// Run fires fn at every scheduled instant until ctx is canceled. It
// returns ctx.Err() on shutdown. Iterations run sequentially; if one
// overruns into the next firing time, the late firing happens
// immediately rather than being skipped.
func (s *Scheduler) Run(ctx context.Context, fn RunFunc) error {
	iteration := 0
	for {
		now := s.clock.Now()
		next := s.schedule.Next(now)
		s.log.Info("waiting for next scheduled run",
			"schedule", s.spec, "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		iteration++
		s.log.Info("starting scheduled run", "iteration", iteration)
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error(err, "scheduled run failed", "iteration", iteration)
		}
	}
}
