package roster

import (
	"context"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
)

// RosterRepository is the read side of the roster owned by the school
// management screens.
type RosterRepository interface {
	// ListSubjects returns active subjects of the scope, optionally limited
	// to one group
	ListSubjects(ctx context.Context, scope attendance.SubjectType, groupID *string) ([]Subject, error)

	// HasBiometricEnrollment reports whether the subject has an enrolled
	// biometric reference
	HasBiometricEnrollment(ctx context.Context, subjectID string) (bool, error)
}
