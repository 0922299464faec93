package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/report"
)

type ReportRepository struct {
	db *DB
}

var _ report.ReportRepository = (*ReportRepository)(nil)

func inSummary(rec *attendance.Record, q report.SummaryQuery) bool {
	if rec.Date < q.FromDate || rec.Date > q.ToDate {
		return false
	}
	if q.SubjectType != nil && rec.SubjectType != *q.SubjectType {
		return false
	}
	if q.SubjectID != nil && rec.SubjectID != *q.SubjectID {
		return false
	}
	if q.GroupID != nil && (rec.GroupID == nil || *rec.GroupID != *q.GroupID) {
		return false
	}
	return true
}

func count(c *report.StatusCounts, status attendance.Status) {
	switch status {
	case attendance.StatusPresent:
		c.Present++
	case attendance.StatusLate:
		c.Late++
	case attendance.StatusAbsent:
		c.Absent++
	}
}

func (r *ReportRepository) CountStatuses(ctx context.Context, q report.SummaryQuery) (report.StatusCounts, error) {
	if err := ctx.Err(); err != nil {
		return report.StatusCounts{}, err
	}
	t := r.db.records
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	var counts report.StatusCounts
	for _, rec := range t.byID {
		if inSummary(rec, q) {
			count(&counts, rec.Status)
		}
	}
	return counts, nil
}

func (r *ReportRepository) CountStatusesBySubject(ctx context.Context, q report.SummaryQuery) ([]report.SubjectCounts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := r.db.records
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	bySubject := make(map[string]*report.SubjectCounts)
	for _, rec := range t.byID {
		if !inSummary(rec, q) {
			continue
		}
		row, ok := bySubject[rec.SubjectID]
		if !ok {
			row = &report.SubjectCounts{SubjectID: rec.SubjectID}
			bySubject[rec.SubjectID] = row
		}
		count(&row.StatusCounts, rec.Status)
	}

	result := make([]report.SubjectCounts, 0, len(bySubject))
	for _, row := range bySubject {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubjectID < result[j].SubjectID })
	return result, nil
}
