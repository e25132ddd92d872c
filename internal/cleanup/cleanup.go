package cleanup

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"inmobiliaria-portal/internal/logger"
	"inmobiliaria-portal/internal/models"
	"inmobiliaria-portal/internal/storage"
)

// Service handles physical deletion of stored image objects that no
// longer have a property_images row pointing at them
type Service struct {
	db      *gorm.DB
	storage storage.Backend
}

// NewService creates a new cleanup service
func NewService(db *gorm.DB, backend storage.Backend) *Service {
	return &Service{db: db, storage: backend}
}

// SweepConfig holds configuration for sweep operations
type SweepConfig struct {
	MaxDeletionCount int  // Maximum number of objects to delete in one run (safety limit)
	DryRun           bool // If true, only log what would be deleted without actually deleting
}

// DefaultSweepConfig returns default configuration
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		MaxDeletionCount: 1000,
		DryRun:           false,
	}
}

// SweepResult holds the result of a sweep operation
type SweepResult struct {
	TargetCount    int       `json:"target_count"`      // Number of objects eligible for deletion
	DeletedCount   int       `json:"deleted_count"`     // Number of objects actually deleted
	ErrorCount     int       `json:"error_count"`       // Number of errors encountered
	DryRun         bool      `json:"dry_run"`           // Whether this was a dry run
	ExecutedAt     time.Time `json:"executed_at"`       // When the sweep was executed
	DeletedObjects []string  `json:"deleted_objects"`   // URLs of deleted objects
	Errors         []string  `json:"errors,omitempty"`  // Error messages
}

// FindOrphanedObjects lists every stored object and returns the ones no
// property_images row references. A row deletion removes only the row,
// so the object lingers until a sweep reclaims it.
func (s *Service) FindOrphanedObjects(ctx context.Context) ([]string, error) {
	stored, err := s.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored objects: %w", err)
	}

	var referencedURLs []string
	if err := s.db.Model(&models.PropertyImage{}).
		Pluck("image_url", &referencedURLs).Error; err != nil {
		return nil, fmt.Errorf("failed to load referenced image URLs: %w", err)
	}

	referenced := make(map[string]bool, len(referencedURLs))
	for _, u := range referencedURLs {
		referenced[u] = true
	}

	var orphans []string
	for _, u := range stored {
		if !referenced[u] {
			orphans = append(orphans, u)
		}
	}

	logger.Log.Infof("Cleanup: found %d orphaned objects (%d stored, %d referenced)",
		len(orphans), len(stored), len(referenced))
	return orphans, nil
}

// Sweep deletes orphaned image objects from the storage backend
func (s *Service) Sweep(ctx context.Context, config SweepConfig) (*SweepResult, error) {
	result := &SweepResult{
		DryRun:     config.DryRun,
		ExecutedAt: time.Now(),
	}

	orphans, err := s.FindOrphanedObjects(ctx)
	if err != nil {
		return nil, err
	}

	result.TargetCount = len(orphans)

	if result.TargetCount == 0 {
		logger.Log.Info("Cleanup: no orphaned objects found")
		return result, nil
	}

	// Safety check: abort if too many objects would be deleted
	if result.TargetCount > config.MaxDeletionCount {
		return nil, fmt.Errorf("safety check failed: %d objects exceed max deletion limit of %d",
			result.TargetCount, config.MaxDeletionCount)
	}

	logger.Log.Infof("Cleanup: starting sweep of %d objects (dry-run: %v)",
		result.TargetCount, config.DryRun)

	for _, url := range orphans {
		if config.DryRun {
			logger.Log.Infof("Cleanup: [DRY-RUN] would delete object %s", url)
			result.DeletedObjects = append(result.DeletedObjects, url)
			result.DeletedCount++
			continue
		}

		if err := s.storage.Delete(ctx, url); err != nil {
			errMsg := fmt.Sprintf("failed to delete object %s: %v", url, err)
			logger.Log.Errorf("Cleanup: %s", errMsg)
			result.Errors = append(result.Errors, errMsg)
			result.ErrorCount++
			continue
		}

		result.DeletedObjects = append(result.DeletedObjects, url)
		result.DeletedCount++
	}

	logger.Log.Infof("Cleanup: sweep completed, %d/%d deleted, %d errors (dry-run: %v)",
		result.DeletedCount, result.TargetCount, result.ErrorCount, config.DryRun)

	return result, nil
}
