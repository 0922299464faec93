package settings

import "context"

// Provider supplies the configuration the recorder, sweeper and geofence
// read on every call.
type Provider interface {
	GetAttendanceSettings(ctx context.Context) (AttendanceSettings, error)
	GetGeofenceReference(ctx context.Context) (*GeofenceReference, error)
}

type SettingsService interface {
	Provider
	UpdateAttendanceSettings(ctx context.Context, req UpdateAttendanceSettingsRequest) (AttendanceSettingsResponse, error)
	GetGeofence(ctx context.Context) (GeofenceResponse, error)
	UpdateGeofence(ctx context.Context, req UpdateGeofenceRequest) (GeofenceResponse, error)
}
