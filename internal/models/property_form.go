package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PropertyForm is the typed shape of a create/update request. Multipart
// fields bind here before anything reaches the store; image files are
// handled separately by the upload pipeline.
type PropertyForm struct {
	Title       string   `form:"title"`
	Description string   `form:"description" validate:"required"`
	Price       *float64 `form:"price" validate:"required,gte=0"`
	City        string   `form:"city" validate:"required"`
	Type        string   `form:"type" validate:"required,oneof=casa departamento terreno oficina local quinta"`
	Status      string   `form:"status" validate:"omitempty,oneof=disponible reservada vendida"`
	Address     string   `form:"address"`
	Bedrooms    *int     `form:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms   *int     `form:"bathrooms" validate:"omitempty,gte=0"`
	Area        *int     `form:"area" validate:"omitempty,gte=0"`
	CoveredArea *int     `form:"coveredArea" validate:"omitempty,gte=0"`
	Patio       string   `form:"patio"`
	Garage      string   `form:"garage"`
	Latitude    *float64 `form:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `form:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Featured    *bool    `form:"featured"`
}

var formValidator = validator.New()

// fieldNames maps struct field names to their wire names for error output
var fieldNames = map[string]string{
	"Title":       "title",
	"Description": "description",
	"Price":       "price",
	"City":        "city",
	"Type":        "type",
	"Status":      "status",
	"Bedrooms":    "bedrooms",
	"Bathrooms":   "bathrooms",
	"Area":        "area",
	"CoveredArea": "coveredArea",
	"Latitude":    "latitude",
	"Longitude":   "longitude",
}

// Validate checks the form and returns every failing field, so a single
// response can name all of them at once.
func (f *PropertyForm) Validate() []string {
	var fields []string

	if err := formValidator.Struct(f); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, ve := range verrs {
				name := fieldNames[ve.StructField()]
				if name == "" {
					name = ve.StructField()
				}
				switch ve.Tag() {
				case "required":
					fields = append(fields, fmt.Sprintf("%s is required", name))
				case "oneof":
					fields = append(fields, fmt.Sprintf("%s must be one of: %s", name, ve.Param()))
				case "gte":
					fields = append(fields, fmt.Sprintf("%s must be >= %s", name, ve.Param()))
				case "lte":
					fields = append(fields, fmt.Sprintf("%s must be <= %s", name, ve.Param()))
				default:
					fields = append(fields, fmt.Sprintf("%s is invalid", name))
				}
			}
		} else {
			fields = append(fields, err.Error())
		}
	}

	// Coordinates are a pair: either both present or both absent
	if (f.Latitude == nil) != (f.Longitude == nil) {
		fields = append(fields, "latitude and longitude must be provided together")
	}

	return fields
}

// ApplyTo writes the form's values onto a property, filling defaults for
// omitted optional fields. Used for both create and full-replace update.
func (f *PropertyForm) ApplyTo(p *Property) {
	p.Title = f.Title
	p.Description = f.Description
	if f.Price != nil {
		p.Price = *f.Price
	}
	p.City = f.City
	p.Type = PropertyType(f.Type)

	p.Status = PropertyStatusDisponible
	if f.Status != "" {
		p.Status = PropertyStatus(f.Status)
	}

	p.Address = f.Address
	p.Bedrooms = f.Bedrooms
	p.Bathrooms = f.Bathrooms
	p.Area = f.Area
	p.CoveredArea = f.CoveredArea

	p.Patio = DefaultAmenity
	if f.Patio != "" {
		p.Patio = f.Patio
	}
	p.Garage = DefaultAmenity
	if f.Garage != "" {
		p.Garage = f.Garage
	}

	p.Latitude = f.Latitude
	p.Longitude = f.Longitude

	// Featured is deliberately not applied here: the flag only moves
	// through the toggle operation, which enforces the cap.
}

// ValidationError carries the itemized list of failing fields
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}
