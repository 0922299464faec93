package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordID_Deterministic(t *testing.T) {
	a := attendance.Key{SubjectType: attendance.SubjectStudent, SubjectID: "S1", Date: "2025-03-10"}
	b := attendance.Key{SubjectType: attendance.SubjectStaff, SubjectID: "S1", Date: "2025-03-10"}

	assert.Equal(t, RecordID(a), RecordID(a))
	assert.NotEqual(t, RecordID(a), RecordID(b))
	assert.Len(t, RecordID(a), 36)
}

func TestLedger_CreateIsUniquePerKey(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(memory.Open().Attendance())
	key := attendance.Key{SubjectType: attendance.SubjectStudent, SubjectID: "S1", Date: "2025-03-10"}
	at := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)

	rec, err := attendance.NewCheckIn(key, nil, attendance.StatusPresent, attendance.MethodQRToken, true, at)
	require.NoError(t, err)

	created, err := ledger.Create(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, RecordID(key), created.ID)

	_, err = ledger.Create(ctx, attendance.NewAbsence(key, nil))
	assert.ErrorIs(t, err, attendance.ErrDuplicateRecord)

	found, err := ledger.Find(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, attendance.StateCheckedIn, found.State)
}

func TestLedger_Transition(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(memory.Open().Attendance())
	key := attendance.Key{SubjectType: attendance.SubjectStudent, SubjectID: "S1", Date: "2025-03-10"}
	in := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)

	rec, err := attendance.NewCheckIn(key, nil, attendance.StatusLate, attendance.MethodBiometric, true, in)
	require.NoError(t, err)
	created, err := ledger.Create(ctx, rec)
	require.NoError(t, err)

	_, err = ledger.Transition(ctx, created.ID, attendance.Move{Kind: attendance.MoveCheckIn})
	assert.ErrorIs(t, err, attendance.ErrInvalidTransition, "check-in needs an empty key")

	_, err = ledger.Transition(ctx, created.ID, attendance.Move{Kind: attendance.MoveCheckOut, At: in.Add(-time.Minute)})
	assert.ErrorIs(t, err, attendance.ErrInvalidTransition, "check-out cannot precede check-in")

	out, err := ledger.Transition(ctx, created.ID, attendance.Move{Kind: attendance.MoveCheckOut, At: in.Add(6 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, attendance.StateCompleted, out.State)
	assert.Equal(t, attendance.StatusLate, out.Status)

	_, err = ledger.Transition(ctx, created.ID, attendance.Move{Kind: attendance.MoveCheckOut, At: in.Add(7 * time.Hour)})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)

	_, err = ledger.Transition(ctx, created.ID, attendance.Move{Kind: "reopen"})
	assert.ErrorIs(t, err, attendance.ErrInvalidTransition)

	_, err = ledger.Transition(ctx, "missing", attendance.Move{Kind: attendance.MoveCheckIn})
	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)
}

func TestLedger_AbsentRecordCannotBeCheckedOut(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(memory.Open().Attendance())
	key := attendance.Key{SubjectType: attendance.SubjectStaff, SubjectID: "T1", Date: "2025-03-10"}

	absent, err := ledger.Create(ctx, attendance.NewAbsence(key, nil))
	require.NoError(t, err)
	assert.True(t, absent.AutoMarked)
	assert.Nil(t, absent.CheckInAt)

	_, err = ledger.Transition(ctx, absent.ID, attendance.Move{Kind: attendance.MoveCheckOut, At: time.Now()})
	assert.ErrorIs(t, err, attendance.ErrMustCheckInFirst)
}
