// Package scheduler runs the periodic snapshot refresh and history rebuild.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
)

// SnapshotBuilder builds and records a portfolio snapshot.
type SnapshotBuilder interface {
	BuildSnapshot(ctx context.Context) (model.PortfolioSnapshot, error)
}

// HistoryRebuilder recomputes the persisted history log.
type HistoryRebuilder interface {
	Rebuild(ctx context.Context) ([]model.HistoryPoint, error)
}

// Config holds the cron specs of the jobs. An empty spec disables its job.
type Config struct {
	Snapshot string
	History  string
	// Timeout bounds a single job run.
	Timeout time.Duration
}

// Scheduler owns the cron runner. A job whose previous run is still in
// progress is skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

// New registers the jobs configured in cfg.
func New(cfg Config, snapshots SnapshotBuilder, histories HistoryRebuilder, logger *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		timeout: cfg.Timeout,
		logger:  logger,
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Minute
	}

	if cfg.Snapshot != "" {
		if _, err := s.cron.AddFunc(cfg.Snapshot, func() { s.runSnapshot(snapshots) }); err != nil {
			return nil, fmt.Errorf("invalid snapshot schedule %q: %w", cfg.Snapshot, err)
		}
	}
	if cfg.History != "" {
		if _, err := s.cron.AddFunc(cfg.History, func() { s.runHistory(histories) }); err != nil {
			return nil, fmt.Errorf("invalid history schedule %q: %w", cfg.History, err)
		}
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop stops scheduling new runs and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// Entries returns the registered cron entries.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runSnapshot(snapshots SnapshotBuilder) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	snapshot, err := snapshots.BuildSnapshot(ctx)
	if err != nil {
		s.logger.Error("scheduled snapshot failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled snapshot recorded",
		zap.String("value", snapshot.Totals.Value.StringFixed(2)),
		zap.Int("items", snapshot.Totals.ItemsCount),
	)
}

func (s *Scheduler) runHistory(histories HistoryRebuilder) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	points, err := histories.Rebuild(ctx)
	if err != nil {
		s.logger.Error("scheduled history rebuild failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled history rebuild done", zap.Int("points", len(points)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
