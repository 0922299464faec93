package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/roster"
)

type RosterRepository struct {
	db *DB
}

var _ roster.RosterRepository = (*RosterRepository)(nil)

// Put adds or replaces roster members.
func (r *RosterRepository) Put(subjects ...roster.Subject) {
	t := r.db.subjects
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, s := range subjects {
		t.t[string(s.Type)+"|"+s.ID] = s
	}
}

func (r *RosterRepository) ListSubjects(ctx context.Context, scope attendance.SubjectType, groupID *string) ([]roster.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := r.db.subjects
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	var subjects []roster.Subject
	for _, s := range t.t {
		if s.Type != scope || !s.Active {
			continue
		}
		if groupID != nil && (s.GroupID == nil || *s.GroupID != *groupID) {
			continue
		}
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, nil
}

func (r *RosterRepository) HasBiometricEnrollment(ctx context.Context, subjectID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	t := r.db.subjects
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	for _, s := range t.t {
		if s.ID == subjectID {
			return s.BiometricEnrolled, nil
		}
	}
	return false, nil
}
