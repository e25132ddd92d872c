package cleanup

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"inmobiliaria-portal/internal/models"
	"inmobiliaria-portal/internal/storage"
)

type memBackend struct {
	objects map[string]bool
	deletes []string
}

func newMemBackend(urls ...string) *memBackend {
	b := &memBackend{objects: make(map[string]bool)}
	for _, u := range urls {
		b.objects[u] = true
	}
	return b
}

func (b *memBackend) Kind() string { return "mem" }

func (b *memBackend) Save(_ context.Context, propertyID int64, up storage.Upload) (string, error) {
	url := fmt.Sprintf("/uploads/%d_%s", propertyID, up.Filename)
	b.objects[url] = true
	return url, nil
}

func (b *memBackend) Delete(_ context.Context, publicURL string) error {
	if !b.objects[publicURL] {
		return fmt.Errorf("no such object %s", publicURL)
	}
	delete(b.objects, publicURL)
	b.deletes = append(b.deletes, publicURL)
	return nil
}

func (b *memBackend) List(_ context.Context) ([]string, error) {
	urls := make([]string, 0, len(b.objects))
	for u := range b.objects {
		urls = append(urls, u)
	}
	return urls, nil
}

func newTestService(t *testing.T, backend storage.Backend) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Exec(`
		CREATE TABLE property_images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			property_id INTEGER NOT NULL,
			image_url TEXT NOT NULL,
			created_at DATETIME
		)`).Error)

	return NewService(db, backend), db
}

func reference(t *testing.T, db *gorm.DB, url string) {
	t.Helper()
	require.NoError(t, db.Create(&models.PropertyImage{PropertyID: 1, ImageURL: url}).Error)
}

func TestSweepRemovesOnlyOrphans(t *testing.T) {
	backend := newMemBackend("/uploads/kept.png", "/uploads/orphan_a.png", "/uploads/orphan_b.png")
	svc, db := newTestService(t, backend)
	reference(t, db, "/uploads/kept.png")

	result, err := svc.Sweep(context.Background(), DefaultSweepConfig())
	require.NoError(t, err)

	require.Equal(t, 2, result.TargetCount)
	require.Equal(t, 2, result.DeletedCount)
	require.Zero(t, result.ErrorCount)
	require.ElementsMatch(t, []string{"/uploads/orphan_a.png", "/uploads/orphan_b.png"}, result.DeletedObjects)

	require.True(t, backend.objects["/uploads/kept.png"], "referenced object must survive the sweep")
	require.Len(t, backend.objects, 1)
}

func TestSweepNoOrphans(t *testing.T) {
	backend := newMemBackend("/uploads/kept.png")
	svc, db := newTestService(t, backend)
	reference(t, db, "/uploads/kept.png")

	result, err := svc.Sweep(context.Background(), DefaultSweepConfig())
	require.NoError(t, err)
	require.Zero(t, result.TargetCount)
	require.Zero(t, result.DeletedCount)
}

func TestSweepDryRunDeletesNothing(t *testing.T) {
	backend := newMemBackend("/uploads/orphan.png")
	svc, _ := newTestService(t, backend)

	config := DefaultSweepConfig()
	config.DryRun = true

	result, err := svc.Sweep(context.Background(), config)
	require.NoError(t, err)
	require.True(t, result.DryRun)
	require.Equal(t, 1, result.DeletedCount, "dry run reports what it would delete")
	require.Len(t, backend.objects, 1, "dry run must not touch storage")
	require.Empty(t, backend.deletes)
}

func TestSweepHonorsSafetyLimit(t *testing.T) {
	backend := newMemBackend()
	for i := 0; i < 5; i++ {
		backend.objects[fmt.Sprintf("/uploads/orphan_%d.png", i)] = true
	}
	svc, _ := newTestService(t, backend)

	config := DefaultSweepConfig()
	config.MaxDeletionCount = 3

	_, err := svc.Sweep(context.Background(), config)
	require.Error(t, err)
	require.Contains(t, err.Error(), "safety check failed")
	require.Len(t, backend.objects, 5, "an aborted sweep deletes nothing")
}

func TestSweepCountsBackendErrors(t *testing.T) {
	backend := newMemBackend("/uploads/orphan.png")
	svc, _ := newTestService(t, backend)

	// Remove the object behind the backend's back so Delete fails
	listBefore, err := backend.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listBefore, 1)

	failing := &deleteFailBackend{memBackend: backend}
	svc.storage = failing

	result, err := svc.Sweep(context.Background(), DefaultSweepConfig())
	require.NoError(t, err)
	require.Equal(t, 1, result.TargetCount)
	require.Zero(t, result.DeletedCount)
	require.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
}

type deleteFailBackend struct {
	*memBackend
}

func (b *deleteFailBackend) Delete(context.Context, string) error {
	return fmt.Errorf("permission denied")
}
