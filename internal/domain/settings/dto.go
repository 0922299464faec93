package settings

import (
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
)

type UpdateAttendanceSettingsRequest struct {
	LateAfter  string `json:"late_after"`
	CloseAfter string `json:"close_after"`
	Timezone   string `json:"timezone"`
	SchoolDays []int  `json:"school_days"` // 0 = Sunday
}

func (r *UpdateAttendanceSettingsRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidClock(r.LateAfter) {
		errs = append(errs, validator.ValidationError{
			Field:   "late_after",
			Message: ErrInvalidCutoff.Error(),
		})
	}
	if !validator.IsValidClock(r.CloseAfter) {
		errs = append(errs, validator.ValidationError{
			Field:   "close_after",
			Message: ErrInvalidCutoff.Error(),
		})
	}
	if validator.IsValidClock(r.LateAfter) && validator.IsValidClock(r.CloseAfter) && r.CloseAfter < r.LateAfter {
		errs = append(errs, validator.ValidationError{
			Field:   "close_after",
			Message: "close_after must not be before late_after",
		})
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil || validator.IsEmpty(r.Timezone) {
		errs = append(errs, validator.ValidationError{
			Field:   "timezone",
			Message: ErrInvalidTimezone.Error(),
		})
	}
	for _, d := range r.SchoolDays {
		if d < 0 || d > 6 {
			errs = append(errs, validator.ValidationError{
				Field:   "school_days",
				Message: "school_days must contain weekdays between 0 (Sunday) and 6 (Saturday)",
			})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AttendanceSettingsResponse struct {
	LateAfter  string `json:"late_after"`
	CloseAfter string `json:"close_after"`
	Timezone   string `json:"timezone"`
	SchoolDays []int  `json:"school_days"`
}

func ToSettingsResponse(s AttendanceSettings) AttendanceSettingsResponse {
	days := make([]int, 0, len(s.SchoolDays))
	for _, d := range s.SchoolDays {
		days = append(days, int(d))
	}
	return AttendanceSettingsResponse{
		LateAfter:  s.LateAfter,
		CloseAfter: s.CloseAfter,
		Timezone:   s.Timezone,
		SchoolDays: days,
	}
}

type UpdateGeofenceRequest struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

func (r *UpdateGeofenceRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidLatitude(r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}
	if !validator.IsValidLongitude(r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}
	if r.RadiusMeters <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "radius_meters",
			Message: "radius_meters must be greater than 0",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type GeofenceResponse struct {
	Configured   bool    `json:"configured"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	RadiusMeters float64 `json:"radius_meters,omitempty"`
}
