package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/roster"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/sweep"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/lock"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/metrics"
)

type SweeperImpl struct {
	ledger  attendance.Ledger
	records attendance.AttendanceRepository
	roster  roster.RosterRepository
	locks   sweep.LockRepository
	runLock lock.Locker

	settings settings.Provider
	metrics  *metrics.Metrics

	lockTTL time.Duration
	now     func() time.Time
}

// Sweep implements sweep.Sweeper.
func (s *SweeperImpl) Sweep(ctx context.Context, req sweep.SweepRequest) (sweep.SweepResult, error) {
	if err := req.Validate(); err != nil {
		return sweep.SweepResult{}, err
	}

	result := sweep.SweepResult{Scope: string(req.Scope), Date: req.Date}

	cfg, err := s.settings.GetAttendanceSettings(ctx)
	if err != nil {
		return result, err
	}

	now := s.now()
	today := cfg.Today(now)
	if req.Date > today {
		return result, sweep.ErrFutureDate
	}

	if !req.Force {
		if !cfg.IsSchoolDay(req.Date) {
			return s.skip(result, sweep.SkipNotSchoolDay), nil
		}
		if req.Date == today {
			closeAt, err := cfg.CloseCutoff(req.Date)
			if err != nil {
				return result, fmt.Errorf("failed to compute close cutoff: %w", err)
			}
			if !now.After(closeAt) {
				return s.skip(result, sweep.SkipBeforeClose), nil
			}
		}
	}

	lease, acquired, err := s.runLock.Acquire(ctx, fmt.Sprintf("sweep:%s:%s", req.Scope, req.Date), s.lockTTL)
	if err != nil {
		return result, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !acquired {
		return result, sweep.ErrSweepInProgress
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, lock.ErrNotHeld) {
			slog.Warn("Sweep: failed to release run lock", "scope", req.Scope, "date", req.Date, "error", err)
		}
	}()

	subjects, err := s.roster.ListSubjects(ctx, req.Scope, nil)
	if err != nil {
		return result, fmt.Errorf("failed to list roster: %w", err)
	}
	recorded, err := s.records.SubjectIDsWithRecord(ctx, req.Scope, req.Date)
	if err != nil {
		return result, fmt.Errorf("failed to get recorded subjects: %w", err)
	}

	var missing []roster.Subject
	for _, subject := range subjects {
		if _, ok := recorded[subject.ID]; !ok {
			missing = append(missing, subject)
		}
	}

	// The completion marker is only trusted once the roster confirms it.
	completed, err := s.locks.Get(ctx, req.Date, req.Scope)
	if err != nil {
		return result, fmt.Errorf("failed to get sweep marker: %w", err)
	}
	if completed != nil && len(missing) == 0 {
		result.Completed = true
		return s.skip(result, sweep.SkipAlreadySwept), nil
	}
	if completed != nil {
		slog.Warn("Sweep: completion marker found but roster is not fully recorded",
			"scope", req.Scope, "date", req.Date, "missing", len(missing))
	}

	slog.Info("Sweep: marking absences", "scope", req.Scope, "date", req.Date, "roster", len(subjects), "missing", len(missing))

	for i, subject := range missing {
		if err := ctx.Err(); err != nil {
			result.Failed += len(missing) - i
			break
		}

		key := attendance.Key{SubjectType: req.Scope, SubjectID: subject.ID, Date: req.Date}
		if _, err := s.ledger.Create(ctx, attendance.NewAbsence(key, subject.GroupID)); err != nil {
			if errors.Is(err, attendance.ErrDuplicateRecord) {
				// Checked in or marked by a concurrent writer since the read.
				continue
			}
			result.Failed++
			slog.Error("Sweep: failed to mark absence", "scope", req.Scope, "date", req.Date, "subject_id", subject.ID, "error", err)
			continue
		}
		result.Marked++
	}

	s.metrics.SweepMarked(string(req.Scope), result.Marked)
	s.metrics.SweepFailed(string(req.Scope), result.Failed)

	if result.Failed > 0 {
		s.metrics.SweepRun(string(req.Scope), "partial")
		slog.Warn("Sweep: finished with failures, will retry on next run",
			"scope", req.Scope, "date", req.Date, "marked", result.Marked, "failed", result.Failed)
		return result, nil
	}

	marker := sweep.Lock{
		Date:        req.Date,
		Scope:       req.Scope,
		CompletedAt: now.UTC(),
		MarkedCount: result.Marked,
	}
	if err := s.locks.Upsert(ctx, marker); err != nil {
		s.metrics.SweepRun(string(req.Scope), "error")
		return result, fmt.Errorf("failed to write sweep marker: %w", err)
	}

	result.Completed = true
	s.metrics.SweepRun(string(req.Scope), "completed")
	slog.Info("Sweep: completed", "scope", req.Scope, "date", req.Date, "marked", result.Marked)

	return result, nil
}

func (s *SweeperImpl) skip(result sweep.SweepResult, reason sweep.SkipReason) sweep.SweepResult {
	result.Skipped = true
	result.SkipReason = reason
	s.metrics.SweepRun(result.Scope, "skipped")
	return result
}

func NewSweeper(
	ledger attendance.Ledger,
	records attendance.AttendanceRepository,
	rosterRepo roster.RosterRepository,
	locks sweep.LockRepository,
	runLock lock.Locker,
	provider settings.Provider,
	m *metrics.Metrics,
	lockTTL time.Duration,
) sweep.Sweeper {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &SweeperImpl{
		ledger:   ledger,
		records:  records,
		roster:   rosterRepo,
		locks:    locks,
		runLock:  runLock,
		settings: provider,
		metrics:  m,
		lockTTL:  lockTTL,
		now:      time.Now,
	}
}
