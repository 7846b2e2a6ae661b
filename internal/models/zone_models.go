package models

import (
	"delivery-and-compliance/pkg/geo"
)

// DeliveryZone is a static piece of configuration describing one polygonal
// service area and its commercial terms. Zones are loaded once at startup
// and never mutated at runtime; their list order (Position) is the explicit
// tie-break when polygons overlap.
type DeliveryZone struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Polygon       []geo.Coordinate `json:"polygon"`
	DeliveryFee   float64          `json:"delivery_fee"`
	MinimumOrder  float64          `json:"minimum_order"`
	EstimatedTime string           `json:"estimated_time"` // e.g. "30-45 min"
	Position      int              `json:"position"`
	IsActive      bool             `json:"is_active"`
}

// ValidateAddressRequest carries either a free-text address (geocoded
// upstream of the containment test) or an already-resolved coordinate.
type ValidateAddressRequest struct {
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// AddressValidationResult is the outcome of a delivery-zone check.
// IsValid=false with a message is a legitimate negative result, not an
// error.
type AddressValidationResult struct {
	IsValid       bool          `json:"is_valid"`
	Zone          *DeliveryZone `json:"zone,omitempty"`
	DistanceMiles float64       `json:"distance_miles,omitempty"`
	DeliveryFee   float64       `json:"delivery_fee,omitempty"`
	EstimatedTime string        `json:"estimated_time,omitempty"`
	Message       string        `json:"message"`
}

// AvailabilityResult reports whether delivery is open at a given instant.
type AvailabilityResult struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}
