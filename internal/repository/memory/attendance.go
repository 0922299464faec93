package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
)

type AttendanceRepository struct {
	db *DB
}

var _ attendance.AttendanceRepository = (*AttendanceRepository)(nil)

func (r *AttendanceRepository) FindByKey(ctx context.Context, key attendance.Key) (*attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := r.db.records
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	id, ok := t.byKey[key]
	if !ok {
		return nil, nil
	}
	rec := *t.byID[id]
	return &rec, nil
}

func (r *AttendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Record{}, err
	}
	t := r.db.records
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	rec, ok := t.byID[id]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return *rec, nil
}

func (r *AttendanceRepository) Create(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Record{}, err
	}
	t := r.db.records
	t.mutex.Lock()
	defer t.mutex.Unlock()

	key := rec.Key()
	if _, taken := t.byKey[key]; taken {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}
	if _, taken := t.byID[rec.ID]; taken {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}

	now := r.db.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	stored := rec
	t.byID[rec.ID] = &stored
	t.byKey[key] = rec.ID
	return rec, nil
}

func (r *AttendanceRepository) CheckOut(ctx context.Context, id string, at time.Time) (attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Record{}, err
	}
	t := r.db.records
	t.mutex.Lock()
	defer t.mutex.Unlock()

	current, ok := t.byID[id]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	next, err := attendance.ApplyCheckOut(*current, at)
	if err != nil {
		return attendance.Record{}, err
	}
	next.UpdatedAt = r.db.now().UTC()
	*current = next
	return next, nil
}

func matches(rec *attendance.Record, f attendance.RecordFilter) bool {
	if f.SubjectType != nil && rec.SubjectType != *f.SubjectType {
		return false
	}
	if f.SubjectID != nil && *f.SubjectID != "" && rec.SubjectID != *f.SubjectID {
		return false
	}
	if f.GroupID != nil && *f.GroupID != "" && (rec.GroupID == nil || *rec.GroupID != *f.GroupID) {
		return false
	}
	if f.Status != nil && rec.Status != *f.Status {
		return false
	}
	if f.StartDate != nil && *f.StartDate != "" && rec.Date < *f.StartDate {
		return false
	}
	if f.EndDate != nil && *f.EndDate != "" && rec.Date > *f.EndDate {
		return false
	}
	return true
}

func (r *AttendanceRepository) List(ctx context.Context, f attendance.RecordFilter) ([]attendance.Record, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	t := r.db.records
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	result := make([]attendance.Record, 0)
	for _, rec := range t.byID {
		if matches(rec, f) {
			result = append(result, *rec)
		}
	}

	asc := strings.ToLower(f.SortOrder) == "asc"
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			if asc {
				return result[i].Date < result[j].Date
			}
			return result[i].Date > result[j].Date
		}
		return result[i].SubjectID < result[j].SubjectID
	})

	total := int64(len(result))
	if f.Limit > 0 {
		start := (f.Page - 1) * f.Limit
		if start < 0 {
			start = 0
		}
		if start > len(result) {
			start = len(result)
		}
		end := start + f.Limit
		if end > len(result) {
			end = len(result)
		}
		result = result[start:end]
	}
	return result, total, nil
}

func (r *AttendanceRepository) SubjectIDsWithRecord(ctx context.Context, subjectType attendance.SubjectType, date string) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := r.db.records
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	ids := make(map[string]struct{})
	for key := range t.byKey {
		if key.SubjectType == subjectType && key.Date == date {
			ids[key.SubjectID] = struct{}{}
		}
	}
	return ids, nil
}
