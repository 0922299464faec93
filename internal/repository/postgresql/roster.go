package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/roster"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type rosterRepositoryImpl struct {
	db *database.DB
}

func NewRosterRepository(db *database.DB) roster.RosterRepository {
	return &rosterRepositoryImpl{db: db}
}

// ListSubjects implements roster.RosterRepository.
func (r *rosterRepositoryImpl) ListSubjects(ctx context.Context, scope attendance.SubjectType, groupID *string) ([]roster.Subject, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, subject_type, group_id, biometric_enrolled, active
		FROM subjects
		WHERE subject_type = $1
		  AND active = true
		  AND ($2::text IS NULL OR group_id = $2)
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, string(scope), groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []roster.Subject
	for rows.Next() {
		var (
			s           roster.Subject
			subjectType string
		)
		if err := rows.Scan(&s.ID, &subjectType, &s.GroupID, &s.BiometricEnrolled, &s.Active); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		s.Type = attendance.SubjectType(subjectType)
		subjects = append(subjects, s)
	}

	return subjects, rows.Err()
}

// HasBiometricEnrollment implements roster.RosterRepository.
func (r *rosterRepositoryImpl) HasBiometricEnrollment(ctx context.Context, subjectID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var enrolled bool
	err := q.QueryRow(ctx, `SELECT biometric_enrolled FROM subjects WHERE id = $1`, subjectID).Scan(&enrolled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get biometric enrollment: %w", err)
	}

	return enrolled, nil
}
