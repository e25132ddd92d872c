package database

import (
	"inmobiliaria-portal/internal/models"
)

// CityStat is a per-city listing count
type CityStat struct {
	City  string `json:"city"`
	Count int64  `json:"count"`
}

// PriceBand is one bucket of the price distribution
type PriceBand struct {
	Label    string  `json:"range_label"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
	Count    int64   `json:"count"`
}

// Stats returns the overview counters shown on the admin dashboard
func (s *Store) Stats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	byStatus := make(map[string]int64)
	for _, status := range []models.PropertyStatus{
		models.PropertyStatusDisponible,
		models.PropertyStatusReservada,
		models.PropertyStatusVendida,
	} {
		var n int64
		if err := s.db.Model(&models.Property{}).Where("status = ?", status).Count(&n).Error; err != nil {
			return nil, err
		}
		byStatus[string(status)] = n
	}
	stats["by_status"] = byStatus

	var typeCounts []struct {
		Type  string `json:"type"`
		Count int64  `json:"count"`
	}
	err := s.db.Model(&models.Property{}).
		Select("type, count(*) as count").
		Group("type").
		Order("count DESC").
		Scan(&typeCounts).Error
	if err != nil {
		return nil, err
	}
	byType := make(map[string]int64, len(typeCounts))
	for _, tc := range typeCounts {
		byType[tc.Type] = tc.Count
	}
	stats["by_type"] = byType

	props, imgs, err := s.Counts()
	if err != nil {
		return nil, err
	}
	stats["total"] = props
	stats["images"] = imgs

	var featured int64
	if err := s.db.Model(&models.Property{}).Where("featured = ?", true).Count(&featured).Error; err != nil {
		return nil, err
	}
	stats["featured"] = map[string]int64{
		"used":  featured,
		"limit": models.MaxFeatured,
	}

	var located int64
	if err := s.db.Model(&models.Property{}).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Count(&located).Error; err != nil {
		return nil, err
	}
	stats["with_coordinates"] = located

	return stats, nil
}

// CityStats returns listing counts for the most active cities
func (s *Store) CityStats(limit int) ([]CityStat, error) {
	if limit <= 0 {
		limit = 20
	}
	stats := make([]CityStat, 0, limit)
	err := s.db.Model(&models.Property{}).
		Select("city, count(*) as count").
		Where("city <> ''").
		Group("city").
		Order("count DESC").
		Limit(limit).
		Scan(&stats).Error
	return stats, err
}

// PriceDistribution counts listings per price band (USD sale prices)
func (s *Store) PriceDistribution() ([]PriceBand, error) {
	bands := []PriceBand{
		{Label: "hasta 50k", MinPrice: 0, MaxPrice: 50_000},
		{Label: "50k-100k", MinPrice: 50_000, MaxPrice: 100_000},
		{Label: "100k-200k", MinPrice: 100_000, MaxPrice: 200_000},
		{Label: "200k-500k", MinPrice: 200_000, MaxPrice: 500_000},
		{Label: "500k+", MinPrice: 500_000, MaxPrice: 1_000_000_000},
	}

	for i := range bands {
		var n int64
		err := s.db.Model(&models.Property{}).
			Where("price >= ? AND price < ?", bands[i].MinPrice, bands[i].MaxPrice).
			Count(&n).Error
		if err != nil {
			return nil, err
		}
		bands[i].Count = n
	}
	return bands, nil
}

// RecentActivity returns the most recently touched listings
func (s *Store) RecentActivity(limit int) ([]models.Property, error) {
	if limit <= 0 {
		limit = 50
	}
	var props []models.Property
	err := s.db.Order("updated_at DESC").Limit(limit).Find(&props).Error
	if err != nil {
		return nil, err
	}
	if err := s.loadImages(props); err != nil {
		return nil, err
	}
	return props, nil
}
