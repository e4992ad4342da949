package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"license-tracker/services"
)

// Runner is satisfied by services.ScanGuard.
type Runner interface {
	Run(ctx context.Context, trigger string) (*services.ScanReport, error)
	Shutdown(ctx context.Context) error
}

// Scheduler runs the expiration scan on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	runner Runner
	loc    *time.Location
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

// New parses schedule (standard five-field cron, or a descriptor such as
// "@daily") in loc. How long a run may take is up to runner.
func New(schedule string, loc *time.Location, runner Runner, log *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	log = log.With(zap.String("component", "scheduler"))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		runner: runner,
		loc:    loc,
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid scan schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	entries := s.cron.Entries()
	if len(entries) > 0 {
		s.log.Info("expiration scan scheduled", zap.Time("next_run", entries[0].Schedule.Next(time.Now().In(s.loc))))
	}
}

// Stop prevents new runs, shuts the runner down so a scan in progress is
// cancelled, and waits for both the scan and the cron job to return or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	if err := s.runner.Shutdown(ctx); err != nil {
		return err
	}
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	start := time.Now()
	report, err := s.runner.Run(s.ctx, "schedule")
	switch {
	case errors.Is(err, services.ErrScanInProgress):
		s.log.Info("scheduled expiration scan skipped, already running")
	case errors.Is(err, services.ErrGuardStopped):
		s.log.Info("scheduled expiration scan skipped, shutting down")
	case err != nil:
		s.log.Error("scheduled expiration scan failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
	default:
		s.log.Info("scheduled expiration scan finished",
			zap.Int("notifications", len(report.SentEmails)),
			zap.Int("errors", len(report.Errors)),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
