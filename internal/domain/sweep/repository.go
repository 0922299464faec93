package sweep

import (
	"context"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
)

type LockRepository interface {
	// Get returns nil when the scope has not been completed for date
	Get(ctx context.Context, date string, scope attendance.SubjectType) (*Lock, error)
	Upsert(ctx context.Context, lock Lock) error
}
