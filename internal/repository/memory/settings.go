package memory

import (
	"context"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
)

type SettingsRepository struct {
	db *DB
}

var _ settings.SettingsRepository = (*SettingsRepository)(nil)

func (r *SettingsRepository) GetAttendanceSettings(ctx context.Context) (*settings.AttendanceSettings, error) {
	t := r.db.settings
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if t.attendance == nil {
		return nil, nil
	}
	s := *t.attendance
	s.SchoolDays = append(s.SchoolDays[:0:0], t.attendance.SchoolDays...)
	return &s, nil
}

func (r *SettingsRepository) SaveAttendanceSettings(ctx context.Context, s settings.AttendanceSettings) error {
	t := r.db.settings
	t.mutex.Lock()
	defer t.mutex.Unlock()

	s.SchoolDays = append(s.SchoolDays[:0:0], s.SchoolDays...)
	t.attendance = &s
	return nil
}

func (r *SettingsRepository) GetGeofenceReference(ctx context.Context) (*settings.GeofenceReference, error) {
	t := r.db.settings
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if t.geofence == nil {
		return nil, nil
	}
	ref := *t.geofence
	return &ref, nil
}

func (r *SettingsRepository) SaveGeofenceReference(ctx context.Context, ref settings.GeofenceReference) error {
	t := r.db.settings
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.geofence = &ref
	return nil
}
