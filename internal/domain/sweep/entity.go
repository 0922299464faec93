package sweep

import (
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
)

// Lock marks a (date, scope) sweep as completed. It is trusted only after a
// verification read confirms every roster member holds a record.
type Lock struct {
	Date        string
	Scope       attendance.SubjectType
	CompletedAt time.Time
	MarkedCount int
}
