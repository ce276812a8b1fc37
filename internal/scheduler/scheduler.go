package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is invoked on every scheduled firing.
type Job func(ctx context.Context) error

// Options tune scheduler behaviour. The cron spec is evaluated in Location,
// so a "9-16" hour restriction follows the portal's local clock.
type Options struct {
	CronSpec  string
	Location  *time.Location
	Immediate bool
}

// Scheduler drives cron-timed execution of price checks.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.CronSpec == "" {
		panic("scheduler cron spec must be set")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the job on the cron schedule until ctx is cancelled.
// A firing is skipped while the previous job is still running. Shutdown
// waits for an in-flight job to drain.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	if s.opts.Immediate {
		s.logger.Info().Msg("executing startup check")
		if err := job(ctx); err != nil {
			s.logger.Error().Err(err).Msg("startup check failed")
		}
	}

	loc := s.opts.Location
	if loc == nil {
		loc = time.Local
	}

	runner := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := runner.AddFunc(s.opts.CronSpec, func() {
		s.logger.Info().Msg("executing scheduled check")
		if err := job(ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled check failed")
		}
	}); err != nil {
		return fmt.Errorf("parse cron spec %q: %w", s.opts.CronSpec, err)
	}

	runner.Start()
	s.logger.Info().Str("cron", s.opts.CronSpec).Str("timezone", loc.String()).Msg("scheduler started")

	<-ctx.Done()
	stopped := runner.Stop()
	<-stopped.Done()
	return ctx.Err()
}
