package attendance

import (
	"context"
)

// Ledger owns the per-subject-per-day state machine on top of the
// repository.
type Ledger interface {
	Find(ctx context.Context, key Key) (*Record, error)
	Create(ctx context.Context, record Record) (Record, error)
	Transition(ctx context.Context, id string, move Move) (Record, error)
}

// Recorder validates proof and commits check-in/check-out transitions.
type Recorder interface {
	// Record runs the full verification pipeline and commits the transition
	Record(ctx context.Context, req RecordRequest) (AttendanceResponse, error)

	// Status reports the subject's state for today and what it may do next
	Status(ctx context.Context, req StatusRequest) (StatusResponse, error)

	// List returns records for reporting screens
	List(ctx context.Context, filter RecordFilter) (ListAttendanceResponse, error)
}
