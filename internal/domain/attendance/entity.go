package attendance

import (
	"time"
)

type SubjectType string

const (
	SubjectStudent SubjectType = "student"
	SubjectStaff   SubjectType = "staff"
)

func (t SubjectType) Valid() bool {
	return t == SubjectStudent || t == SubjectStaff
}

type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

type Method string

const (
	MethodQRToken   Method = "qrToken"
	MethodBiometric Method = "biometric"
	MethodManual    Method = "manual"
)

func (m Method) Valid() bool {
	return m == MethodQRToken || m == MethodBiometric || m == MethodManual
}

type Mode string

const (
	ModeIn  Mode = "in"
	ModeOut Mode = "out"
)

// State is the position of a record in the daily state machine. It is set
// only by NewCheckIn, NewAbsence and ApplyCheckOut; readers never infer it
// from the timestamp fields.
type State string

const (
	StateCheckedIn State = "checked_in"
	StateCompleted State = "completed"
	StateAbsent    State = "absent"
)

// Record is one subject's attendance for one school day. At most one exists
// per (SubjectType, SubjectID, Date).
type Record struct {
	ID          string
	SubjectType SubjectType
	SubjectID   string
	GroupID     *string
	Date        string // YYYY-MM-DD in the school timezone
	State       State
	Status      Status
	Method      *Method
	CheckInAt   *time.Time
	CheckOutAt  *time.Time
	Verified    bool
	AutoMarked  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Key returns the uniqueness key of the record.
func (r Record) Key() Key {
	return Key{SubjectType: r.SubjectType, SubjectID: r.SubjectID, Date: r.Date}
}

// Key identifies the single record a subject may hold for a day. It is not
// sharded by group: a subject checks in once per day across all groups.
type Key struct {
	SubjectType SubjectType
	SubjectID   string
	Date        string
}

func (k Key) String() string {
	return string(k.SubjectType) + "|" + k.SubjectID + "|" + k.Date
}

// NewCheckIn builds the CheckedIn record for a subject with no record today.
func NewCheckIn(key Key, groupID *string, status Status, method Method, verified bool, at time.Time) (Record, error) {
	if status != StatusPresent && status != StatusLate {
		return Record{}, ErrInvalidTransition
	}
	at = at.UTC()
	return Record{
		SubjectType: key.SubjectType,
		SubjectID:   key.SubjectID,
		GroupID:     groupID,
		Date:        key.Date,
		State:       StateCheckedIn,
		Status:      status,
		Method:      &method,
		CheckInAt:   &at,
		Verified:    verified,
	}, nil
}

// NewAbsence builds the record written by the sweeper for a subject that
// never checked in.
func NewAbsence(key Key, groupID *string) Record {
	return Record{
		SubjectType: key.SubjectType,
		SubjectID:   key.SubjectID,
		GroupID:     groupID,
		Date:        key.Date,
		State:       StateAbsent,
		Status:      StatusAbsent,
		AutoMarked:  true,
	}
}

// ApplyCheckOut moves a CheckedIn record to Completed. Method and status of
// the check-in are preserved.
func ApplyCheckOut(r Record, at time.Time) (Record, error) {
	switch r.State {
	case StateCheckedIn:
	case StateCompleted:
		return Record{}, ErrAlreadyCheckedOut
	default:
		return Record{}, ErrMustCheckInFirst
	}
	at = at.UTC()
	if r.CheckInAt == nil || at.Before(*r.CheckInAt) {
		return Record{}, ErrInvalidTransition
	}
	r.State = StateCompleted
	r.CheckOutAt = &at
	return r, nil
}

// CheckInRejection returns the error a check-in attempt gets when a record
// already exists for the day.
func CheckInRejection(existing Record) error {
	switch existing.State {
	case StateAbsent:
		return ErrDayClosed
	case StateCompleted:
		return ErrAlreadyCheckedOut
	default:
		return ErrAlreadyCheckedIn
	}
}

// Classify returns late when the check-in happens strictly after the cutoff.
func Classify(at, lateCutoff time.Time) Status {
	if at.After(lateCutoff) {
		return StatusLate
	}
	return StatusPresent
}

// Move is one of the two transitions the ledger accepts on an existing id.
type Move struct {
	Kind MoveKind
	// At is the check-out timestamp
	At time.Time
}

type MoveKind string

const (
	MoveCheckIn  MoveKind = "check_in"
	MoveCheckOut MoveKind = "check_out"
)
