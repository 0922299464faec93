package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/google/uuid"
)

// recordNamespace seeds deterministic record ids, so two writers racing on
// the same key produce the same primary key as well.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("school-attendance/records"))

// RecordID derives the id of the record held under key.
func RecordID(key attendance.Key) string {
	return uuid.NewSHA1(recordNamespace, []byte(key.String())).String()
}

type LedgerImpl struct {
	attendance.AttendanceRepository
}

// Find implements attendance.Ledger.
func (l *LedgerImpl) Find(ctx context.Context, key attendance.Key) (*attendance.Record, error) {
	rec, err := l.AttendanceRepository.FindByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find attendance: %w", err)
	}
	return rec, nil
}

// Create implements attendance.Ledger.
func (l *LedgerImpl) Create(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.ID = RecordID(rec.Key())

	created, err := l.AttendanceRepository.Create(ctx, rec)
	if err != nil {
		if errors.Is(err, attendance.ErrDuplicateRecord) {
			return attendance.Record{}, err
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance: %w", err)
	}
	return created, nil
}

// Transition implements attendance.Ledger. Check-in is only legal on a key
// without a record, so a check-in move against an existing id always fails.
func (l *LedgerImpl) Transition(ctx context.Context, id string, move attendance.Move) (attendance.Record, error) {
	switch move.Kind {
	case attendance.MoveCheckOut:
		rec, err := l.AttendanceRepository.CheckOut(ctx, id, move.At)
		if err != nil {
			if attendance.KindOf(err) != attendance.KindInfrastructure {
				return attendance.Record{}, err
			}
			return attendance.Record{}, fmt.Errorf("failed to check out attendance: %w", err)
		}
		return rec, nil
	case attendance.MoveCheckIn:
		if _, err := l.AttendanceRepository.GetByID(ctx, id); err != nil {
			if errors.Is(err, attendance.ErrRecordNotFound) {
				return attendance.Record{}, err
			}
			return attendance.Record{}, fmt.Errorf("failed to get attendance: %w", err)
		}
		return attendance.Record{}, attendance.ErrInvalidTransition
	default:
		return attendance.Record{}, attendance.ErrInvalidTransition
	}
}

func NewLedger(repo attendance.AttendanceRepository) attendance.Ledger {
	return &LedgerImpl{AttendanceRepository: repo}
}
