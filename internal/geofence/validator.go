// Package geofence decides whether a reported GPS position authorizes a
// geofenced action. The decision is a pure function of the coordinate, the
// project's geofence config and the reported fix accuracy; all the tracking
// state machines gate their location-bound transitions on it.
package geofence

import (
	"github.com/sitepulse/tracking-backend-go/internal/models"
	"github.com/sitepulse/tracking-backend-go/internal/spatial"
)

// Reason explains a geofence decision
type Reason string

const (
	ReasonOK             Reason = "OK"
	ReasonUnrestricted   Reason = "UNRESTRICTED"
	ReasonOutside        Reason = "OUTSIDE_GEOFENCE"
	ReasonAccuracyTooLow Reason = "ACCURACY_TOO_LOW"
	ReasonConfigInvalid  Reason = "CONFIG_INVALID"
)

// Result is the outcome of a geofence validation
type Result struct {
	InsideGeofence bool    `json:"inside_geofence"`
	DistanceMeters float64 `json:"distance_meters"`
	Reason         Reason  `json:"reason"`
}

// Validate checks a position against a project geofence.
//
// The boundary is inclusive: distance == radius + allowedVariance is inside.
// StrictMode scopes only the accuracy check; when it is false a low-accuracy
// fix is advisory and the distance decision alone governs. A non-positive
// radius on a restricted project is a configuration error, never defaulted.
func Validate(current models.Coordinate, cfg models.GeofenceConfig, accuracy float64) Result {
	if cfg.Unrestricted {
		return Result{InsideGeofence: true, Reason: ReasonUnrestricted}
	}

	if cfg.RadiusMeters <= 0 {
		return Result{InsideGeofence: false, Reason: ReasonConfigInvalid}
	}

	distance := spatial.HaversineDistance(
		current.Latitude, current.Longitude,
		cfg.CenterLat, cfg.CenterLng,
	)

	if cfg.StrictMode && cfg.RequiredAccuracyMeters > 0 && accuracy > cfg.RequiredAccuracyMeters {
		// A low-confidence fix must not authorize a geofenced action,
		// regardless of how close the reported position is.
		return Result{InsideGeofence: false, DistanceMeters: distance, Reason: ReasonAccuracyTooLow}
	}

	if distance <= cfg.EffectiveRadius() {
		return Result{InsideGeofence: true, DistanceMeters: distance, Reason: ReasonOK}
	}

	return Result{InsideGeofence: false, DistanceMeters: distance, Reason: ReasonOutside}
}
