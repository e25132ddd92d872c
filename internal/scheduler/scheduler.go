package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"inmobiliaria-portal/internal/cleanup"
	"inmobiliaria-portal/internal/config"
	"inmobiliaria-portal/internal/database"
	"inmobiliaria-portal/internal/logger"
	"inmobiliaria-portal/internal/search"
)

// Scheduler handles the nightly maintenance job: it rebuilds the search
// index from the database and sweeps orphaned image objects out of the
// storage backend.
type Scheduler struct {
	cron      *cron.Cron
	store     *database.Store
	search    *search.SearchClient
	cleanup   *cleanup.Service
	config    *config.Config
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(store *database.Store, searchClient *search.SearchClient, cleanupSvc *cleanup.Service, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		store:   store,
		search:  searchClient,
		cleanup: cleanupSvc,
		config:  cfg,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Maintenance.DailyRunEnabled {
		logger.Log.Info("Scheduler: Daily maintenance is disabled in configuration")
		return nil
	}

	// Parse daily run time (HH:MM format in config)
	cronSpec := s.parseDailyRunTime(s.config.Maintenance.DailyRunTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		logger.Log.Info("Scheduler: Starting daily maintenance job...")
		if err := s.runMaintenance(context.Background()); err != nil {
			logger.Log.Errorf("Scheduler: Daily maintenance failed: %v", err)
		} else {
			logger.Log.Info("Scheduler: Daily maintenance completed successfully")
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	logger.Log.Infof("Scheduler: Started with daily run at %s (cron: %s)", s.config.Maintenance.DailyRunTime, cronSpec)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		logger.Log.Info("Scheduler: Stopped")
	}
}

// runMaintenance executes the maintenance routine
func (s *Scheduler) runMaintenance(ctx context.Context) error {
	// Rebuild the search index from the database
	properties, err := s.store.List()
	if err != nil {
		return fmt.Errorf("failed to load properties for reindex: %w", err)
	}

	if err := s.search.IndexProperties(properties); err != nil {
		logger.Log.Errorf("Scheduler: Reindex failed: %v", err)
	} else {
		logger.Log.Infof("Scheduler: Reindexed %d properties", len(properties))
	}

	// Sweep image objects that no longer have a database row
	sweepConfig := cleanup.DefaultSweepConfig()
	if s.config.Maintenance.SweepCap > 0 {
		sweepConfig.MaxDeletionCount = s.config.Maintenance.SweepCap
	}

	result, err := s.cleanup.Sweep(ctx, sweepConfig)
	if err != nil {
		return fmt.Errorf("orphan sweep failed: %w", err)
	}

	logger.Log.Infof("Scheduler: Maintenance done. Reindexed: %d, Swept: %d, Errors: %d",
		len(properties), result.DeletedCount, result.ErrorCount)

	return nil
}

// RunNow immediately executes the maintenance job (for manual trigger)
func (s *Scheduler) RunNow(ctx context.Context) error {
	logger.Log.Info("Scheduler: Manual trigger - starting maintenance job...")
	return s.runMaintenance(ctx)
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "03:00" -> "0 3 * * *" (run at 3:00 AM every day)
func (s *Scheduler) parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	// Default to 3:00 AM if parsing fails
	logger.Log.Warnf("Scheduler: Failed to parse time '%s', using default 03:00", timeStr)
	return "0 3 * * *"
}
