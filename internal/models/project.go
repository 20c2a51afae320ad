package models

import "time"

// Coordinate is a WGS84 position reported by a mobile device
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeofenceConfig describes the circular admissibility boundary around a
// project site. Owned by the project; read-only from the tracking core.
type GeofenceConfig struct {
	CenterLat              float64 `json:"center_lat" db:"center_lat"`
	CenterLng              float64 `json:"center_lng" db:"center_lng"`
	RadiusMeters           float64 `json:"radius_m" db:"radius_m"`
	AllowedVarianceMeters  float64 `json:"allowed_variance_m" db:"allowed_variance_m"`   // additive tolerance on top of the radius
	RequiredAccuracyMeters float64 `json:"required_accuracy_m" db:"required_accuracy_m"` // max acceptable GPS accuracy
	StrictMode             bool    `json:"strict_mode" db:"strict_mode"`                 // low-accuracy fixes block when true, advisory when false
	Unrestricted           bool    `json:"unrestricted" db:"unrestricted"`               // explicitly waives the fence for this project
}

// EffectiveRadius is the admissible distance from center, boundary inclusive.
func (g GeofenceConfig) EffectiveRadius() float64 {
	return g.RadiusMeters + g.AllowedVarianceMeters
}

// ShiftPolicy holds the per-project attendance policy. Zero values fall
// back to the server-wide defaults from config.
type ShiftPolicy struct {
	ScheduledStart string  `json:"scheduled_start" db:"scheduled_start"` // "HH:MM", UTC
	GraceMinutes   int     `json:"grace_minutes" db:"grace_minutes"`
	RegularHours   float64 `json:"regular_hours" db:"regular_hours"` // daily regular/overtime split threshold
}

// Project represents a construction site with its geofence and shift policy
type Project struct {
	ID        string         `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Geofence  GeofenceConfig `json:"geofence"`
	Policy    ShiftPolicy    `json:"policy"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
