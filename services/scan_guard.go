package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"license-tracker/metrics"
)

const (
	scanKey = "license-tracker:expiration-scan"

	lockReleaseTimeout = 5 * time.Second
)

var (
	// ErrScanInProgress is returned when another instance holds the scan lock.
	ErrScanInProgress = errors.New("expiration scan already running")

	// ErrGuardStopped is returned by Run once Shutdown has been called.
	ErrGuardStopped = errors.New("expiration scans are shutting down")
)

// ScanRunner runs one expiration scan.
type ScanRunner interface {
	Scan(ctx context.Context) (*ScanReport, error)
}

// Locker takes a lock shared between instances. release must be called once
// acquired is true.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// ScanGuard lets one scan run at a time. Callers that arrive while a scan is
// running in this process wait for it and receive the same report; when a
// Locker is configured, a scan running on another instance makes Run return
// ErrScanInProgress.
//
// Scans run on the guard's own context, not the caller's: a caller leaving
// early stops waiting but the shared scan goes on. Each scan is bounded by
// ttl, the lifetime of the distributed lock, and is cancelled by Shutdown.
type ScanGuard struct {
	runner ScanRunner
	locker Locker
	ttl    time.Duration
	group  singleflight.Group
	log    *zap.Logger

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
}

// NewScanGuard wraps runner. locker may be nil for single-instance deployments.
// ttl bounds every scan; zero leaves scans unbounded.
func NewScanGuard(runner ScanRunner, locker Locker, ttl time.Duration, log *zap.Logger) *ScanGuard {
	base, cancel := context.WithCancel(context.Background())
	return &ScanGuard{
		runner: runner,
		locker: locker,
		ttl:    ttl,
		log:    log.With(zap.String("component", "scan_guard")),
		base:   base,
		cancel: cancel,
	}
}

// Run starts a scan or joins the one in flight. trigger names the caller
// for logs ("http", "schedule").
func (g *ScanGuard) Run(ctx context.Context, trigger string) (*ScanReport, error) {
	ch := g.group.DoChan(scanKey, func() (interface{}, error) {
		if !g.begin() {
			return nil, ErrGuardStopped
		}
		defer g.inflight.Done()
		return g.run(trigger)
	})

	select {
	case res := <-ch:
		if res.Shared {
			g.log.Debug("joined running expiration scan", zap.String("trigger", trigger))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ScanReport), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown cancels the running scan, refuses new ones and waits for the
// running one to return or for ctx to expire.
func (g *ScanGuard) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()
	g.cancel()

	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *ScanGuard) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return false
	}
	g.inflight.Add(1)
	return true
}

func (g *ScanGuard) run(trigger string) (*ScanReport, error) {
	log := g.log.With(zap.String("trigger", trigger))

	// The deadline starts before the lock is taken so the scan ends no later
	// than the lock expires.
	ctx := g.base
	if g.ttl > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(g.base, g.ttl)
		defer cancel()
	}

	if g.locker != nil {
		release, acquired, err := g.locker.Acquire(ctx, scanKey, g.ttl)
		if err != nil {
			metrics.ScanRuns.WithLabelValues("failed").Inc()
			return nil, err
		}
		if !acquired {
			metrics.ScanRuns.WithLabelValues("busy").Inc()
			log.Info("expiration scan skipped, another instance holds the lock")
			return nil, ErrScanInProgress
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
			defer cancel()
			if err := release(releaseCtx); err != nil {
				log.Warn("failed to release scan lock", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	log.Info("expiration scan started")
	report, err := g.runner.Scan(ctx)
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ScanRuns.WithLabelValues("failed").Inc()
		log.Error("expiration scan failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	metrics.ScanRuns.WithLabelValues("ok").Inc()
	if len(report.Errors) > 0 {
		log.Warn("errors during expiration check", zap.Strings("errors", report.Errors))
	}
	log.Info("expiration scan completed",
		zap.Int("notifications", len(report.SentEmails)),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}
