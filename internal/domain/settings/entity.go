package settings

import (
	"fmt"
	"time"
)

const clockLayout = "15:04"

// AttendanceSettings are the admin-configured cutoffs of the school day.
type AttendanceSettings struct {
	LateAfter  string // HH:mm
	CloseAfter string // HH:mm
	Timezone   string
	SchoolDays []time.Weekday
	UpdatedAt  time.Time
}

// Location loads the configured timezone, falling back to UTC.
func (s AttendanceSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns the school-local date of t as YYYY-MM-DD.
func (s AttendanceSettings) Today(t time.Time) string {
	return t.In(s.Location()).Format("2006-01-02")
}

// LateCutoff is the instant after which a check-in on date is late.
func (s AttendanceSettings) LateCutoff(date string) (time.Time, error) {
	return s.cutoff(date, s.LateAfter)
}

// CloseCutoff is the instant after which date may be swept.
func (s AttendanceSettings) CloseCutoff(date string) (time.Time, error) {
	return s.cutoff(date, s.CloseAfter)
}

func (s AttendanceSettings) cutoff(date, clock string) (time.Time, error) {
	loc := s.Location()
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	hm, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cutoff %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
}

// IsSchoolDay reports whether date falls on a configured school weekday. An
// empty SchoolDays list treats every day as a school day.
func (s AttendanceSettings) IsSchoolDay(date string) bool {
	if len(s.SchoolDays) == 0 {
		return true
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	for _, wd := range s.SchoolDays {
		if day.Weekday() == wd {
			return true
		}
	}
	return false
}

// GeofenceReference is the circle a device must be inside of.
type GeofenceReference struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	UpdatedAt    time.Time
}
