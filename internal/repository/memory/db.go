// Package memory keeps every table in process memory. It backs the
// STORAGE_DRIVER=memory mode and the service tests.
package memory

import (
	"sync"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/roster"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/sweep"
)

type (
	DB struct {
		records  *recordTable
		subjects *subjectTable
		settings *settingsTable
		locks    *lockTable

		now func() time.Time
	}

	recordTable struct {
		byID  map[string]*attendance.Record
		byKey map[attendance.Key]string
		mutex sync.RWMutex
	}

	subjectTable struct {
		t     map[string]roster.Subject
		mutex sync.RWMutex
	}

	settingsTable struct {
		attendance *settings.AttendanceSettings
		geofence   *settings.GeofenceReference
		mutex      sync.RWMutex
	}

	lockKey struct {
		date  string
		scope attendance.SubjectType
	}

	lockTable struct {
		t     map[lockKey]sweep.Lock
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		records:  &recordTable{byID: make(map[string]*attendance.Record), byKey: make(map[attendance.Key]string)},
		subjects: &subjectTable{t: make(map[string]roster.Subject)},
		settings: &settingsTable{},
		locks:    &lockTable{t: make(map[lockKey]sweep.Lock)},
		now:      time.Now,
	}
}

// SetClock replaces the clock used for created_at and updated_at.
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

func (db *DB) Attendance() *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (db *DB) Roster() *RosterRepository {
	return &RosterRepository{db: db}
}

func (db *DB) Settings() *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (db *DB) SweepLocks() *SweepLockRepository {
	return &SweepLockRepository{db: db}
}

func (db *DB) Reports() *ReportRepository {
	return &ReportRepository{db: db}
}
