package geo

import (
	"github.com/umahmood/haversine"
)

// DefaultRadiusMeters is the nearby-search radius used when the caller
// does not supply one.
const DefaultRadiusMeters = 10000.0

// DistanceMeters returns the great-circle distance between two points
// in meters.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := haversine.Coord{Lat: lat1, Lon: lng1}
	p2 := haversine.Coord{Lat: lat2, Lon: lng2}
	_, km := haversine.Distance(p1, p2)
	return km * 1000
}

// ValidLatitude reports whether lat is a usable latitude in degrees
func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lng is a usable longitude in degrees
func ValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
