package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type settingsRepositoryImpl struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) settings.SettingsRepository {
	return &settingsRepositoryImpl{db: db}
}

// GetAttendanceSettings implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) GetAttendanceSettings(ctx context.Context) (*settings.AttendanceSettings, error) {
	q := GetQuerier(ctx, r.db)

	var (
		s    settings.AttendanceSettings
		days []int32
	)
	err := q.QueryRow(ctx, `
		SELECT late_after, close_after, timezone, school_days, updated_at
		FROM attendance_settings
		WHERE id = 1
	`).Scan(&s.LateAfter, &s.CloseAfter, &s.Timezone, &days, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance settings: %w", err)
	}

	for _, d := range days {
		s.SchoolDays = append(s.SchoolDays, time.Weekday(d))
	}

	return &s, nil
}

// SaveAttendanceSettings implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) SaveAttendanceSettings(ctx context.Context, s settings.AttendanceSettings) error {
	q := GetQuerier(ctx, r.db)

	days := make([]int32, 0, len(s.SchoolDays))
	for _, d := range s.SchoolDays {
		days = append(days, int32(d))
	}

	_, err := q.Exec(ctx, `
		INSERT INTO attendance_settings (id, late_after, close_after, timezone, school_days, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			late_after = EXCLUDED.late_after,
			close_after = EXCLUDED.close_after,
			timezone = EXCLUDED.timezone,
			school_days = EXCLUDED.school_days,
			updated_at = EXCLUDED.updated_at
	`, s.LateAfter, s.CloseAfter, s.Timezone, days, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save attendance settings: %w", err)
	}

	return nil
}

// GetGeofenceReference implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) GetGeofenceReference(ctx context.Context) (*settings.GeofenceReference, error) {
	q := GetQuerier(ctx, r.db)

	var ref settings.GeofenceReference
	err := q.QueryRow(ctx, `
		SELECT latitude, longitude, radius_meters, updated_at
		FROM geofence_reference
		WHERE id = 1
	`).Scan(&ref.Latitude, &ref.Longitude, &ref.RadiusMeters, &ref.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get geofence reference: %w", err)
	}

	return &ref, nil
}

// SaveGeofenceReference implements settings.SettingsRepository.
func (r *settingsRepositoryImpl) SaveGeofenceReference(ctx context.Context, ref settings.GeofenceReference) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO geofence_reference (id, latitude, longitude, radius_meters, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			radius_meters = EXCLUDED.radius_meters,
			updated_at = EXCLUDED.updated_at
	`, ref.Latitude, ref.Longitude, ref.RadiusMeters, ref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save geofence reference: %w", err)
	}

	return nil
}
