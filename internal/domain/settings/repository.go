package settings

import "context"

type SettingsRepository interface {
	// GetAttendanceSettings returns nil when nothing has been stored yet
	GetAttendanceSettings(ctx context.Context) (*AttendanceSettings, error)
	SaveAttendanceSettings(ctx context.Context, s AttendanceSettings) error

	// GetGeofenceReference returns nil when no reference point is configured
	GetGeofenceReference(ctx context.Context) (*GeofenceReference, error)
	SaveGeofenceReference(ctx context.Context, ref GeofenceReference) error
}
