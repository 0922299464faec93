package settings

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaults = settings.AttendanceSettings{
	LateAfter:  "08:00",
	CloseAfter: "15:00",
	Timezone:   "UTC",
	SchoolDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
}

func TestSettings_DefaultsUntilSaved(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(memory.Open().Settings(), defaults)

	got, err := svc.GetAttendanceSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "08:00", got.LateAfter)

	resp, err := svc.UpdateAttendanceSettings(ctx, settings.UpdateAttendanceSettingsRequest{
		LateAfter:  "07:30",
		CloseAfter: "14:00",
		Timezone:   "UTC",
		SchoolDays: []int{1, 2, 3, 4, 5, 6, 6},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, resp.SchoolDays)

	got, err = svc.GetAttendanceSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "07:30", got.LateAfter)
	assert.True(t, got.IsSchoolDay("2025-03-15"), "saturday was added")
}

func TestSettings_UpdateValidation(t *testing.T) {
	svc := NewSettingsService(memory.Open().Settings(), defaults)

	_, err := svc.UpdateAttendanceSettings(context.Background(), settings.UpdateAttendanceSettingsRequest{
		LateAfter:  "8am",
		CloseAfter: "07:00",
		Timezone:   "Mars/Olympus",
		SchoolDays: []int{7},
	})
	assert.Equal(t, attendance.KindValidation, attendance.KindOf(err))
}

func TestSettings_Geofence(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(memory.Open().Settings(), defaults)

	resp, err := svc.GetGeofence(ctx)
	require.NoError(t, err)
	assert.False(t, resp.Configured)

	_, err = svc.UpdateGeofence(ctx, settings.UpdateGeofenceRequest{Latitude: -6.2, Longitude: 106.8, RadiusMeters: 0})
	assert.Error(t, err)

	resp, err = svc.UpdateGeofence(ctx, settings.UpdateGeofenceRequest{Latitude: -6.2, Longitude: 106.8, RadiusMeters: 120})
	require.NoError(t, err)
	assert.True(t, resp.Configured)

	ref, err := svc.GetGeofenceReference(ctx)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, 120.0, ref.RadiusMeters)
}

func TestAttendanceSettings_Cutoffs(t *testing.T) {
	s := settings.AttendanceSettings{LateAfter: "08:00", CloseAfter: "15:00", Timezone: "UTC"}

	late, err := s.LateCutoff("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), late)

	_, err = s.CloseCutoff("not-a-date")
	assert.Error(t, err)

	assert.Equal(t, "2025-03-10", s.Today(time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)))
	assert.True(t, s.IsSchoolDay("2025-03-09"), "empty school days means every day")
}
