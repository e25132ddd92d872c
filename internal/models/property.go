package models

import "time"

// Property represents a real-estate listing
type Property struct {
	// Identity and required attributes
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string         `gorm:"type:text;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Price       float64        `gorm:"type:decimal(14,2);not null" json:"price"`
	City        string         `gorm:"type:varchar(120);not null;index" json:"city"`
	Type        PropertyType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Status      PropertyStatus `gorm:"type:varchar(20);not null;default:'disponible';index" json:"status"`

	// Optional attributes
	Address     string   `gorm:"type:text;not null;default:''" json:"address"`
	Bedrooms    *int     `gorm:"type:int" json:"bedrooms"`
	Bathrooms   *int     `gorm:"type:int" json:"bathrooms"`
	Area        *int     `gorm:"type:int" json:"area"`
	CoveredArea *int     `gorm:"type:int;column:covered_area" json:"coveredArea"`
	Patio       string   `gorm:"type:varchar(60);not null;default:'No Tiene'" json:"patio"`
	Garage      string   `gorm:"type:varchar(60);not null;default:'No Tiene'" json:"garage"`
	Latitude    *float64 `gorm:"type:decimal(10,7)" json:"latitude"`
	Longitude   *float64 `gorm:"type:decimal(10,7)" json:"longitude"`
	Featured    bool     `gorm:"not null;default:false;index" json:"featured"`

	// Timestamps
	PublishedDate time.Time `gorm:"not null" json:"publishedDate"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index:idx_properties_created_at,sort:desc" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Images carries the ordered image URLs of the property; it is
	// always non-nil on API responses, aggregated by the store.
	Images []string `gorm:"-" json:"images"`

	// Distance is set only on nearby-search results, in meters.
	Distance *float64 `gorm:"-" json:"distance,omitempty"`
}

// PropertyType is the kind of property being listed
type PropertyType string

const (
	PropertyTypeCasa         PropertyType = "casa"
	PropertyTypeDepartamento PropertyType = "departamento"
	PropertyTypeTerreno      PropertyType = "terreno"
	PropertyTypeOficina      PropertyType = "oficina"
	PropertyTypeLocal        PropertyType = "local"
	PropertyTypeQuinta       PropertyType = "quinta"
)

// PropertyStatus is the sale status of a listing
type PropertyStatus string

const (
	PropertyStatusDisponible PropertyStatus = "disponible"
	PropertyStatusReservada  PropertyStatus = "reservada"
	PropertyStatusVendida    PropertyStatus = "vendida"
)

// MaxFeatured is the cap on concurrently featured properties
const MaxFeatured = 3

// DefaultAmenity is the value for patio/garage when none is declared
const DefaultAmenity = "No Tiene"

// TableName specifies the table name for Property
func (Property) TableName() string {
	return "properties"
}

// HasCoordinates reports whether the listing carries a full coordinate pair
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// FeaturedSummary is the shape returned when the featured cap is hit,
// so the caller can pick a listing to unfeature.
type FeaturedSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
