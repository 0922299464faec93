package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/sweep"
)

var sweepScopes = []attendance.SubjectType{attendance.SubjectStudent, attendance.SubjectStaff}

type AttendanceJobs struct {
	sweeper  sweep.Sweeper
	settings settings.Provider
	now      func() time.Time
}

func NewAttendanceJobs(sweeper sweep.Sweeper, provider settings.Provider) *AttendanceJobs {
	return &AttendanceJobs{
		sweeper:  sweeper,
		settings: provider,
		now:      time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, interval, timeout time.Duration) {
	scheduler.AddJob("mark_absent_subjects", interval, timeout, j.MarkAbsentSubjects)
}

// MarkAbsentSubjects sweeps yesterday and today for every scope. The sweeper
// decides on its own whether a date is closed, a school day, or already
// complete, so running this often is cheap and heals missed runs.
func (j *AttendanceJobs) MarkAbsentSubjects(ctx context.Context) error {
	cfg, err := j.settings.GetAttendanceSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to get attendance settings: %w", err)
	}

	nowLocal := j.now().In(cfg.Location())
	dates := []string{
		nowLocal.AddDate(0, 0, -1).Format("2006-01-02"),
		nowLocal.Format("2006-01-02"),
	}

	var errs []error
	totalMarked := 0
	for _, scope := range sweepScopes {
		for _, date := range dates {
			result, err := j.sweeper.Sweep(ctx, sweep.SweepRequest{Scope: scope, Date: date})
			if err != nil {
				if errors.Is(err, sweep.ErrSweepInProgress) {
					slog.Info("Cron: sweep already running elsewhere", "scope", scope, "date", date)
					continue
				}
				errs = append(errs, fmt.Errorf("sweep %s %s: %w", scope, date, err))
				continue
			}
			if result.Skipped {
				slog.Debug("Cron: sweep skipped", "scope", scope, "date", date, "reason", result.SkipReason)
				continue
			}
			totalMarked += result.Marked
		}
	}

	if totalMarked > 0 {
		slog.Info("Cron: marked absent subjects", "count", totalMarked)
	}

	return errors.Join(errs...)
}
