// Package sched runs a task on a fixed cadence until its context is canceled.
package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Task is one scheduled unit of work. Errors are logged, not fatal: a failed
// scan should not kill the trader loop.
type Task func(ctx context.Context) error

// Runner fires its task immediately on start, then on every interval tick.
type Runner struct {
	name     string
	interval time.Duration
	task     Task
	log      zerolog.Logger
}

// NewRunner validates the cadence and wraps the task.
func NewRunner(name string, interval time.Duration, task Task, log zerolog.Logger) (*Runner, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %v", interval)
	}
	if task == nil {
		return nil, fmt.Errorf("scheduler task must not be nil")
	}
	return &Runner{
		name:     name,
		interval: interval,
		task:     task,
		log:      log.With().Str("component", "sched").Str("task", name).Logger(),
	}, nil
}

// Run blocks until ctx is canceled, returning ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.fire(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			r.fire(ctx)
		}
	}
}

func (r *Runner) fire(ctx context.Context) {
	started := time.Now()
	if err := r.task(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.log.Error().Err(err).Msg("task failed")
		return
	}
	r.log.Debug().Dur("elapsed", time.Since(started)).Msg("task done")
}
