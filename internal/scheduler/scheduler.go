// Package scheduler runs periodic lake maintenance on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/danjsiegel/ducksync/internal/storage"
)

// Scheduler manages cron-based cache lake maintenance.
type Scheduler struct {
	cron     *cron.Cron
	cleaner  *storage.Cleaner
	schedule string
	logger   *slog.Logger
}

// New creates a scheduler that runs CleanupAll on the given cron schedule.
func New(cleaner *storage.Cleaner, schedule string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		cleaner:  cleaner,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the cleanup job and starts the cron loop. An invalid
// schedule is an error; an empty one disables the scheduler silently.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("cleanup scheduler disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.schedule, func() {
		result := s.cleaner.CleanupAll(context.Background())
		s.logger.Info("scheduled cleanup finished",
			"snapshots_expired", result.SnapshotsExpired,
			"files_cleaned", result.FilesCleaned,
			"orphans_deleted", result.OrphansDeleted,
		)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("cleanup scheduler started", "schedule", s.schedule)
	return nil
}

// Stop gracefully stops the cron loop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("cleanup scheduler stopped")
}
