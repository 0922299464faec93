package geofence

import (
	"context"
	"math"
	"testing"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	ref *settings.GeofenceReference
}

func (p staticProvider) GetAttendanceSettings(context.Context) (settings.AttendanceSettings, error) {
	return settings.AttendanceSettings{}, nil
}

func (p staticProvider) GetGeofenceReference(context.Context) (*settings.GeofenceReference, error) {
	return p.ref, nil
}

var school = settings.GeofenceReference{Latitude: -6.2, Longitude: 106.8166, RadiusMeters: 100}

func TestValidate_Outcomes(t *testing.T) {
	ctx := context.Background()
	v := NewValidator(staticProvider{ref: &school})

	result, err := v.Validate(ctx, &attendance.Location{Latitude: school.Latitude, Longitude: school.Longitude})
	require.NoError(t, err)
	assert.Zero(t, result.DistanceMeters)

	_, err = v.Validate(ctx, nil)
	assert.ErrorIs(t, err, attendance.ErrLocationPermissionDenied)

	_, err = NewValidator(staticProvider{}).Validate(ctx, &attendance.Location{})
	assert.ErrorIs(t, err, attendance.ErrGeofenceNotConfigured)

	_, err = v.Validate(ctx, &attendance.Location{Latitude: school.Latitude + 0.01, Longitude: school.Longitude})
	var outOfRange *attendance.OutOfRangeError
	require.ErrorAs(t, err, &outOfRange)
	assert.Greater(t, outOfRange.DistanceMeters, school.RadiusMeters)
}

func TestCheck_BoundaryIsInclusive(t *testing.T) {
	loc := attendance.Location{Latitude: school.Latitude + 0.0005, Longitude: school.Longitude}
	d := utils.CalculateHaversineDistance(loc.Latitude, loc.Longitude, school.Latitude, school.Longitude)

	ref := school
	ref.RadiusMeters = d
	_, err := Check(ref, loc)
	assert.NoError(t, err, "distance equal to the radius is inside")

	ref.RadiusMeters = d - 0.001
	_, err = Check(ref, loc)
	assert.ErrorIs(t, err, attendance.ErrOutOfRange)
}

func TestCheck_FlipsOnceWithIncreasingDistance(t *testing.T) {
	flips := 0
	inside := true
	for i := 0; i <= 200; i++ {
		loc := attendance.Location{Latitude: school.Latitude + float64(i)*0.00001, Longitude: school.Longitude}
		_, err := Check(school, loc)
		now := err == nil
		if now != inside {
			flips++
			inside = now
		}
	}
	assert.Equal(t, 1, flips)
	assert.False(t, inside)
}

func TestCheck_FarSideOfGlobeIsOutOfRange(t *testing.T) {
	ref := settings.GeofenceReference{Latitude: 89.98, Longitude: 0, RadiusMeters: 100}
	for _, loc := range []attendance.Location{
		{Latitude: -89.98, Longitude: -180},
		{Latitude: -89.98, Longitude: 180},
		{Latitude: -89.99, Longitude: -179.99},
	} {
		result, err := Check(ref, loc)
		assert.ErrorIs(t, err, attendance.ErrOutOfRange)
		assert.False(t, math.IsNaN(result.DistanceMeters))
	}
}

func TestCheck_NaNDistanceIsOutOfRange(t *testing.T) {
	_, err := Check(school, attendance.Location{Latitude: math.NaN(), Longitude: school.Longitude})
	assert.ErrorIs(t, err, attendance.ErrOutOfRange)
}
