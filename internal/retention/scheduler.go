// Package retention removes stored outputs older than a retention window on
// a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redactyl/labscrub/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Pruner deletes stored outputs created before cutoff and reports how many
// it removed. store.Store satisfies it.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

type Config struct {
	// Retention is how long outputs are kept. Zero disables pruning.
	Retention time.Duration
	// Schedule is a standard five-field cron expression, e.g. "0 3 * * *".
	Schedule string
}

// Scheduler runs a Pruner on Config.Schedule.
type Scheduler struct {
	cfg     Config
	pruner  Pruner
	metrics *metrics.Collector
	cron    *cron.Cron
	now     func() time.Time
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

func NewScheduler(cfg Config, pruner Pruner, m *metrics.Collector, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		pruner:  pruner,
		metrics: m,
		cron:    cron.New(),
		now:     time.Now,
		logger:  logger.With("component", "retention"),
	}
}

// Enabled reports whether both a window and a schedule are configured.
func (s *Scheduler) Enabled() bool {
	return s.cfg.Retention > 0 && s.cfg.Schedule != ""
}

// Start schedules pruning and returns immediately. The scheduler stops when
// ctx is cancelled. It is a no-op when pruning is not enabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled() {
		s.logger.Info("retention not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return fmt.Errorf("retention scheduler already running")
	}
	if _, err := cron.ParseStandard(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.cfg.Schedule, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("retention scheduler started",
		"schedule", s.cfg.Schedule,
		"retention", s.cfg.Retention.String(),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce prunes everything older than the retention window.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.Retention)
	n, err := s.pruner.Prune(ctx, cutoff)
	s.metrics.RecordPruned(n)
	if err != nil {
		s.logger.Error("pruning failed", "error", err, "deleted_count", n)
		return n, err
	}
	if n > 0 {
		s.logger.Info("pruning completed", "deleted_count", n, "cutoff", cutoff)
	} else {
		s.logger.Debug("pruning completed, nothing to delete")
	}
	return n, nil
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled prune, or nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
