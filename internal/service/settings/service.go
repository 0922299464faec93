package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
)

type SettingsServiceImpl struct {
	settings.SettingsRepository
	defaults settings.AttendanceSettings
	now      func() time.Time
}

// GetAttendanceSettings returns the stored settings, or the configured
// defaults when an administrator never saved any.
func (s *SettingsServiceImpl) GetAttendanceSettings(ctx context.Context) (settings.AttendanceSettings, error) {
	stored, err := s.SettingsRepository.GetAttendanceSettings(ctx)
	if err != nil {
		return settings.AttendanceSettings{}, fmt.Errorf("failed to get attendance settings: %w", err)
	}
	if stored == nil {
		return s.defaults, nil
	}
	return *stored, nil
}

// GetGeofenceReference implements settings.Provider.
func (s *SettingsServiceImpl) GetGeofenceReference(ctx context.Context) (*settings.GeofenceReference, error) {
	ref, err := s.SettingsRepository.GetGeofenceReference(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get geofence reference: %w", err)
	}
	return ref, nil
}

// UpdateAttendanceSettings implements settings.SettingsService.
func (s *SettingsServiceImpl) UpdateAttendanceSettings(ctx context.Context, req settings.UpdateAttendanceSettingsRequest) (settings.AttendanceSettingsResponse, error) {
	if err := req.Validate(); err != nil {
		return settings.AttendanceSettingsResponse{}, err
	}

	days := make([]time.Weekday, 0, len(req.SchoolDays))
	seen := make(map[int]bool, len(req.SchoolDays))
	for _, d := range req.SchoolDays {
		if seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, time.Weekday(d))
	}

	updated := settings.AttendanceSettings{
		LateAfter:  req.LateAfter,
		CloseAfter: req.CloseAfter,
		Timezone:   req.Timezone,
		SchoolDays: days,
		UpdatedAt:  s.now().UTC(),
	}
	if err := s.SettingsRepository.SaveAttendanceSettings(ctx, updated); err != nil {
		return settings.AttendanceSettingsResponse{}, fmt.Errorf("failed to save attendance settings: %w", err)
	}

	return settings.ToSettingsResponse(updated), nil
}

// GetGeofence implements settings.SettingsService.
func (s *SettingsServiceImpl) GetGeofence(ctx context.Context) (settings.GeofenceResponse, error) {
	ref, err := s.GetGeofenceReference(ctx)
	if err != nil {
		return settings.GeofenceResponse{}, err
	}
	if ref == nil {
		return settings.GeofenceResponse{Configured: false}, nil
	}
	return settings.GeofenceResponse{
		Configured:   true,
		Latitude:     ref.Latitude,
		Longitude:    ref.Longitude,
		RadiusMeters: ref.RadiusMeters,
	}, nil
}

// UpdateGeofence implements settings.SettingsService.
func (s *SettingsServiceImpl) UpdateGeofence(ctx context.Context, req settings.UpdateGeofenceRequest) (settings.GeofenceResponse, error) {
	if err := req.Validate(); err != nil {
		return settings.GeofenceResponse{}, err
	}

	ref := settings.GeofenceReference{
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
		UpdatedAt:    s.now().UTC(),
	}
	if err := s.SettingsRepository.SaveGeofenceReference(ctx, ref); err != nil {
		return settings.GeofenceResponse{}, fmt.Errorf("failed to save geofence reference: %w", err)
	}

	return settings.GeofenceResponse{
		Configured:   true,
		Latitude:     ref.Latitude,
		Longitude:    ref.Longitude,
		RadiusMeters: ref.RadiusMeters,
	}, nil
}

func NewSettingsService(repo settings.SettingsRepository, defaults settings.AttendanceSettings) settings.SettingsService {
	return &SettingsServiceImpl{
		SettingsRepository: repo,
		defaults:           defaults,
		now:                time.Now,
	}
}
