package roster

import "github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"

// Subject is a roster member who can be marked attendant.
type Subject struct {
	ID                string
	Type              attendance.SubjectType
	GroupID           *string
	BiometricEnrolled bool
	Active            bool
}
