package attendance

import (
	"context"
	"time"
)

// AttendanceRepository is the persistence contract of the ledger. The store
// enforces uniqueness of (subject_type, subject_id, date).
type AttendanceRepository interface {
	// FindByKey returns the record for the key, or nil when none exists
	FindByKey(ctx context.Context, key Key) (*Record, error)

	// GetByID returns ErrRecordNotFound when no record has the id
	GetByID(ctx context.Context, id string) (Record, error)

	// Create inserts a new record and returns ErrDuplicateRecord when the key
	// is already taken
	Create(ctx context.Context, record Record) (Record, error)

	// CheckOut sets check_out_at on a checked-in record. It returns
	// ErrInvalidTransition when the record is not in the CheckedIn state at
	// write time.
	CheckOut(ctx context.Context, id string, at time.Time) (Record, error)

	// List returns records matching the filter and the total match count
	List(ctx context.Context, filter RecordFilter) ([]Record, int64, error)

	// SubjectIDsWithRecord returns the subjects of the given type holding a
	// record on date
	SubjectIDsWithRecord(ctx context.Context, subjectType SubjectType, date string) (map[string]struct{}, error)
}
