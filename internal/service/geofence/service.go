package geofence

import (
	"context"
	"fmt"
	"math"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/utils"
)

// Result is the outcome of an in-range check.
type Result struct {
	DistanceMeters float64
	RadiusMeters   float64
}

type Validator struct {
	provider settings.Provider
}

func NewValidator(provider settings.Provider) *Validator {
	return &Validator{provider: provider}
}

// Validate checks that loc lies within the configured reference circle. A
// point exactly on the boundary is inside. A nil loc means the device could
// not obtain a position and is rejected.
func (v *Validator) Validate(ctx context.Context, loc *attendance.Location) (Result, error) {
	if loc == nil {
		return Result{}, attendance.ErrLocationPermissionDenied
	}

	ref, err := v.provider.GetGeofenceReference(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get geofence reference: %w", err)
	}
	if ref == nil {
		return Result{}, attendance.ErrGeofenceNotConfigured
	}

	return Check(*ref, *loc)
}

// Check is the pure distance test against a known reference.
func Check(ref settings.GeofenceReference, loc attendance.Location) (Result, error) {
	distance := utils.CalculateHaversineDistance(loc.Latitude, loc.Longitude, ref.Latitude, ref.Longitude)
	result := Result{DistanceMeters: distance, RadiusMeters: ref.RadiusMeters}

	if math.IsNaN(distance) || distance > ref.RadiusMeters {
		return result, &attendance.OutOfRangeError{
			DistanceMeters: distance,
			RadiusMeters:   ref.RadiusMeters,
		}
	}

	return result, nil
}
