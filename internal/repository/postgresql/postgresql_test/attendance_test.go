package postgresql_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/sweep"
	"github.com/cmlabs-hris/school-attendance-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/school-attendance-go/internal/service/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceRepository_UniqueKeyUnderConcurrency(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	ledger := attendanceService.NewLedger(postgresql.NewAttendanceRepository(setup.DB))

	key := attendance.Key{SubjectType: attendance.SubjectStudent, SubjectID: "S1", Date: "2025-03-10"}
	at := time.Date(2025, 3, 10, 0, 58, 0, 0, time.UTC)

	var created, duplicates int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, _ := attendance.NewCheckIn(key, nil, attendance.StatusPresent, attendance.MethodQRToken, true, at)
			_, err := ledger.Create(ctx, rec)
			switch {
			case err == nil:
				atomic.AddInt32(&created, 1)
			case errors.Is(err, attendance.ErrDuplicateRecord):
				atomic.AddInt32(&duplicates, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created)
	assert.Equal(t, int32(9), duplicates)
}

func TestAttendanceRepository_CheckOut(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewAttendanceRepository(setup.DB)
	ledger := attendanceService.NewLedger(repo)

	key := attendance.Key{SubjectType: attendance.SubjectStaff, SubjectID: "T1", Date: "2025-03-10"}
	in := time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)
	rec, err := attendance.NewCheckIn(key, nil, attendance.StatusLate, attendance.MethodBiometric, true, in)
	require.NoError(t, err)
	created, err := ledger.Create(ctx, rec)
	require.NoError(t, err)

	found, err := repo.FindByKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "2025-03-10", found.Date)
	assert.Equal(t, attendance.StateCheckedIn, found.State)

	out, err := repo.CheckOut(ctx, created.ID, in.Add(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, attendance.StateCompleted, out.State)
	assert.Equal(t, attendance.StatusLate, out.Status)

	_, err = repo.CheckOut(ctx, created.ID, in.Add(9*time.Hour))
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)

	_, err = repo.CheckOut(ctx, "00000000-0000-0000-0000-000000000000", in)
	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)
}

func TestReportRepository_CountStatuses(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	ledger := attendanceService.NewLedger(postgresql.NewAttendanceRepository(setup.DB))

	for _, date := range []string{"2025-03-10", "2025-03-11"} {
		_, err := ledger.Create(ctx, attendance.NewAbsence(attendance.Key{SubjectType: attendance.SubjectStudent, SubjectID: "S1", Date: date}, nil))
		require.NoError(t, err)
	}

	counts, err := postgresql.NewReportRepository(setup.DB).CountStatuses(ctx, report.SummaryQuery{FromDate: "2025-03-01", ToDate: "2025-03-31"})
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Absent)
	assert.Zero(t, counts.Present)
}

func TestSettingsAndSweepLocks(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()

	settingsRepo := postgresql.NewSettingsRepository(setup.DB)
	got, err := settingsRepo.GetAttendanceSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, settingsRepo.SaveAttendanceSettings(ctx, settings.AttendanceSettings{
		LateAfter:  "07:15",
		CloseAfter: "14:00",
		Timezone:   "Asia/Jakarta",
		SchoolDays: []time.Weekday{time.Monday, time.Saturday},
		UpdatedAt:  time.Now(),
	}))
	got, err = settingsRepo.GetAttendanceSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []time.Weekday{time.Monday, time.Saturday}, got.SchoolDays)

	locks := postgresql.NewSweepLockRepository(setup.DB)
	require.NoError(t, locks.Upsert(ctx, sweep.Lock{Date: "2025-03-10", Scope: attendance.SubjectStudent, CompletedAt: time.Now(), MarkedCount: 3}))
	lock, err := locks.Get(ctx, "2025-03-10", attendance.SubjectStudent)
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.Equal(t, 3, lock.MarkedCount)
}
