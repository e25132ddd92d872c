package database

import (
	"sort"

	"inmobiliaria-portal/internal/geo"
	"inmobiliaria-portal/internal/models"
)

// FindNearby returns properties within radiusMeters of the query point,
// closest first, each annotated with its computed distance. Properties
// without coordinates are excluded entirely, never treated as distance
// zero.
func (s *Store) FindNearby(lat, lng, radiusMeters float64) ([]models.Property, error) {
	candidates, err := s.WithCoordinates()
	if err != nil {
		return nil, err
	}

	results := make([]models.Property, 0)
	for _, prop := range candidates {
		if !prop.HasCoordinates() {
			continue
		}
		d := geo.DistanceMeters(lat, lng, *prop.Latitude, *prop.Longitude)
		if d <= radiusMeters {
			dist := d
			prop.Distance = &dist
			results = append(results, prop)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return *results[i].Distance < *results[j].Distance
	})
	return results, nil
}
