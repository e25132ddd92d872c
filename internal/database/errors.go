package database

import (
	"errors"
	"fmt"

	"inmobiliaria-portal/internal/models"
)

// ErrPropertyNotFound signals a property id with no row behind it
var ErrPropertyNotFound = errors.New("property not found")

// ErrImageNotFound signals an image id that does not exist under the
// claimed property
var ErrImageNotFound = errors.New("image not found")

// FeaturedLimitError is returned when enabling featured would exceed
// the cap. Current carries the listings holding the slots so the caller
// can pick one to unfeature.
type FeaturedLimitError struct {
	Current []models.FeaturedSummary
}

func (e *FeaturedLimitError) Error() string {
	return fmt.Sprintf("featured limit of %d reached", models.MaxFeatured)
}
