package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"inmobiliaria-portal/internal/logger"
	"inmobiliaria-portal/internal/models"
	"inmobiliaria-portal/internal/storage"
)

// Store is the durable home of properties and their image collections.
// Image binaries live behind the storage backend; rows referencing them
// live here, and the two are reconciled with compensating deletes
// because no cross-system transaction exists.
type Store struct {
	db      *gorm.DB
	storage storage.Backend
}

// NewStore creates a property store on top of a gorm connection and a
// storage backend
func NewStore(db *gorm.DB, backend storage.Backend) *Store {
	return &Store{db: db, storage: backend}
}

// List returns all properties, newest first, each with its image URLs
func (s *Store) List() ([]models.Property, error) {
	var props []models.Property
	if err := s.db.Order("created_at DESC").Find(&props).Error; err != nil {
		return nil, err
	}
	if err := s.loadImages(props); err != nil {
		return nil, err
	}
	return props, nil
}

// ListFeatured returns the currently featured properties, oldest first,
// capped at the featured limit
func (s *Store) ListFeatured() ([]models.Property, error) {
	var props []models.Property
	err := s.db.Where("featured = ?", true).
		Order("created_at ASC").
		Limit(models.MaxFeatured).
		Find(&props).Error
	if err != nil {
		return nil, err
	}
	if err := s.loadImages(props); err != nil {
		return nil, err
	}
	return props, nil
}

// GetByID returns one property with its images
func (s *Store) GetByID(id int64) (*models.Property, error) {
	var prop models.Property
	if err := s.db.First(&prop, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}

	urls, err := s.imageURLs(id)
	if err != nil {
		return nil, err
	}
	prop.Images = urls
	return &prop, nil
}

// Create inserts a property and stores its attached images. If any
// image step fails after the row was inserted, the row is deleted again
// and already-stored objects are removed, so no property is left
// without its requested images.
func (s *Store) Create(ctx context.Context, form *models.PropertyForm, uploads []storage.Upload) (*models.Property, error) {
	now := time.Now()
	prop := models.Property{PublishedDate: now}
	form.ApplyTo(&prop)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&prop).Error; err != nil {
			return err
		}
		// Title falls back to "Propiedad N" with the assigned id
		if prop.Title == "" {
			prop.Title = fmt.Sprintf("Propiedad %d", prop.ID)
			return tx.Model(&models.Property{}).
				Where("id = ?", prop.ID).
				Update("title", prop.Title).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Featuring at creation runs through the same conditional update
	// as the toggle, so the cap holds under concurrency
	if form.Featured != nil && *form.Featured {
		if err := s.enableFeatured(prop.ID, now); err != nil {
			if derr := s.db.Delete(&models.Property{}, prop.ID).Error; derr != nil {
				logger.Log.Errorf("Store: could not remove property %d after failed featured grant: %v", prop.ID, derr)
			}
			return nil, err
		}
		prop.Featured = true
	}

	accepted, stored, err := s.attachImages(ctx, prop.ID, uploads)
	if err != nil {
		for _, url := range stored {
			if derr := s.storage.Delete(ctx, url); derr != nil {
				logger.Log.Warnf("Store: rollback could not remove stored image %s: %v", url, derr)
			}
		}
		if derr := s.db.Delete(&models.Property{}, prop.ID).Error; derr != nil {
			logger.Log.Errorf("Store: could not remove property %d after failed image attach: %v", prop.ID, derr)
		}
		return nil, err
	}

	prop.Images = accepted
	return &prop, nil
}

// Update replaces all mutable fields of an existing property and
// appends any newly attached images without touching existing ones
func (s *Store) Update(ctx context.Context, id int64, form *models.PropertyForm, uploads []storage.Upload) (*models.Property, error) {
	var prop models.Property
	if err := s.db.First(&prop, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}

	form.ApplyTo(&prop)
	if prop.Title == "" {
		prop.Title = fmt.Sprintf("Propiedad %d", prop.ID)
	}
	if err := s.db.Save(&prop).Error; err != nil {
		return nil, err
	}

	// Unlike create there is no property row to compensate away here:
	// only this request's appended images roll back, rows before
	// objects so a surviving row never references a deleted object
	accepted, stored, err := s.attachImages(ctx, id, uploads)
	if err != nil {
		removable := stored
		if len(accepted) > 0 {
			derr := s.db.Where("property_id = ? AND image_url IN ?", id, accepted).
				Delete(&models.PropertyImage{}).Error
			if derr != nil {
				logger.Log.Errorf("Store: could not remove image rows after failed update of property %d: %v", id, derr)
				removable = urlsWithout(stored, accepted)
			}
		}
		for _, url := range removable {
			if derr := s.storage.Delete(ctx, url); derr != nil {
				logger.Log.Warnf("Store: could not remove stored image %s after failed update: %v", url, derr)
			}
		}
		return nil, err
	}

	urls, err := s.imageURLs(id)
	if err != nil {
		return nil, err
	}
	prop.Images = urls
	return &prop, nil
}

// Delete removes a property, its image rows (database cascade) and,
// best effort, the stored objects behind them. Returns how many image
// rows the property owned.
func (s *Store) Delete(ctx context.Context, id int64) (int, error) {
	var prop models.Property
	if err := s.db.First(&prop, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrPropertyNotFound
		}
		return 0, err
	}

	imgs, err := s.Images(id)
	if err != nil {
		return 0, err
	}

	for _, img := range imgs {
		if derr := s.storage.Delete(ctx, img.ImageURL); derr != nil {
			logger.Log.Warnf("Store: could not remove stored image %s: %v", img.ImageURL, derr)
		}
	}

	if err := s.db.Delete(&models.Property{}, id).Error; err != nil {
		return 0, err
	}
	return len(imgs), nil
}

// Images returns the image rows of a property, oldest first
func (s *Store) Images(propertyID int64) ([]models.PropertyImage, error) {
	imgs := make([]models.PropertyImage, 0)
	err := s.db.Where("property_id = ?", propertyID).Order("id ASC").Find(&imgs).Error
	return imgs, err
}

// DeleteImage removes one image row. The stored object is left in
// place; the maintenance sweep reclaims unreferenced objects later.
func (s *Store) DeleteImage(propertyID, imageID int64) error {
	res := s.db.Where("id = ? AND property_id = ?", imageID, propertyID).
		Delete(&models.PropertyImage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

// ToggleFeatured flips the featured flag. Enabling runs through the
// serialized grant so two concurrent enables cannot both slip under
// the cap.
func (s *Store) ToggleFeatured(id int64) (*models.Property, error) {
	var prop models.Property
	if err := s.db.First(&prop, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}

	now := time.Now()
	if prop.Featured {
		err := s.db.Model(&models.Property{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"featured": false, "updated_at": now}).Error
		if err != nil {
			return nil, err
		}
		prop.Featured = false
	} else {
		if err := s.enableFeatured(id, now); err != nil {
			return nil, err
		}
		prop.Featured = true
	}

	// The search index replaces whole documents, so the returned
	// property must carry its images for reindexing
	urls, err := s.imageURLs(id)
	if err != nil {
		return nil, err
	}
	prop.Images = urls

	prop.UpdatedAt = now
	return &prop, nil
}

// featuredSlotLock is the advisory lock key serializing featured-slot
// grants on PostgreSQL
const featuredSlotLock = 811001

// enableFeatured sets featured = true only while fewer than MaxFeatured
// other properties hold a slot. The counting subquery reads its own
// statement snapshot, so on PostgreSQL concurrent grants of different
// rows must serialize behind an advisory lock held for the
// transaction. Zero affected rows means either the cap is reached or
// the row vanished; a follow-up read disambiguates.
func (s *Store) enableFeatured(id int64, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", featuredSlotLock).Error; err != nil {
				return err
			}
		}

		res := tx.Exec(
			`UPDATE properties SET featured = ?, updated_at = ?
			 WHERE id = ?
			   AND (SELECT COUNT(*) FROM properties p2
			        WHERE p2.featured = ? AND p2.id <> properties.id) < ?`,
			true, now, id, true, models.MaxFeatured)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			current := make([]models.FeaturedSummary, 0, models.MaxFeatured)
			err := tx.Model(&models.Property{}).
				Select("id", "title").
				Where("featured = ?", true).
				Order("created_at ASC").
				Scan(&current).Error
			if err != nil {
				return err
			}
			if len(current) >= models.MaxFeatured {
				return &FeaturedLimitError{Current: current}
			}
			return ErrPropertyNotFound
		}
		return nil
	})
}

// FeaturedSummaries returns id/title pairs of the currently featured
// properties, oldest first
func (s *Store) FeaturedSummaries() ([]models.FeaturedSummary, error) {
	summaries := make([]models.FeaturedSummary, 0, models.MaxFeatured)
	err := s.db.Model(&models.Property{}).
		Select("id", "title").
		Where("featured = ?", true).
		Order("created_at ASC").
		Scan(&summaries).Error
	return summaries, err
}

// WithCoordinates returns all properties carrying a coordinate pair
func (s *Store) WithCoordinates() ([]models.Property, error) {
	var props []models.Property
	err := s.db.Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Order("created_at DESC").
		Find(&props).Error
	if err != nil {
		return nil, err
	}
	if err := s.loadImages(props); err != nil {
		return nil, err
	}
	return props, nil
}

// Counts returns total property and image rows, used by the health
// endpoint
func (s *Store) Counts() (int64, int64, error) {
	var props, imgs int64
	if err := s.db.Model(&models.Property{}).Count(&props).Error; err != nil {
		return 0, 0, err
	}
	if err := s.db.Model(&models.PropertyImage{}).Count(&imgs).Error; err != nil {
		return 0, 0, err
	}
	return props, imgs, nil
}

// attachImages stores each upload and inserts its row. It returns the
// accepted URLs and every URL that reached storage, so callers can
// clean up after a partial failure.
func (s *Store) attachImages(ctx context.Context, propertyID int64, uploads []storage.Upload) (accepted []string, stored []string, err error) {
	accepted = make([]string, 0, len(uploads))

	for _, up := range uploads {
		url, serr := s.storage.Save(ctx, propertyID, up)
		if serr != nil {
			return accepted, stored, serr
		}
		stored = append(stored, url)

		// Guard against malformed storage responses: a URL that is
		// neither absolute http(s) nor root-relative never reaches
		// the database
		if !storage.ValidPublicURL(url) {
			logger.Log.Warnf("Store: discarding malformed image url %q for property %d", url, propertyID)
			if derr := s.storage.Delete(ctx, url); derr != nil {
				logger.Log.Warnf("Store: could not remove discarded object %s: %v", url, derr)
			}
			stored = stored[:len(stored)-1]
			continue
		}

		row := models.PropertyImage{PropertyID: propertyID, ImageURL: url}
		if rerr := s.db.Create(&row).Error; rerr != nil {
			return accepted, stored, rerr
		}
		accepted = append(accepted, url)
	}

	return accepted, stored, nil
}

// urlsWithout returns the urls that do not appear in exclude
func urlsWithout(urls, exclude []string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, u := range exclude {
		skip[u] = struct{}{}
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := skip[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}

// imageURLs returns the ordered image URLs of one property, never nil
func (s *Store) imageURLs(propertyID int64) ([]string, error) {
	imgs, err := s.Images(propertyID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(imgs))
	for _, img := range imgs {
		urls = append(urls, img.ImageURL)
	}
	return urls, nil
}

// loadImages aggregates image URLs onto a slice of properties with a
// single query
func (s *Store) loadImages(props []models.Property) error {
	for i := range props {
		props[i].Images = make([]string, 0)
	}
	if len(props) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(props))
	index := make(map[int64]int, len(props))
	for i := range props {
		ids = append(ids, props[i].ID)
		index[props[i].ID] = i
	}

	var imgs []models.PropertyImage
	if err := s.db.Where("property_id IN ?", ids).Order("id ASC").Find(&imgs).Error; err != nil {
		return err
	}
	for _, img := range imgs {
		if i, ok := index[img.PropertyID]; ok {
			props[i].Images = append(props[i].Images, img.ImageURL)
		}
	}
	return nil
}
