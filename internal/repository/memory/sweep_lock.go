package memory

import (
	"context"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/sweep"
)

type SweepLockRepository struct {
	db *DB
}

var _ sweep.LockRepository = (*SweepLockRepository)(nil)

func (r *SweepLockRepository) Get(ctx context.Context, date string, scope attendance.SubjectType) (*sweep.Lock, error) {
	t := r.db.locks
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	lock, ok := t.t[lockKey{date: date, scope: scope}]
	if !ok {
		return nil, nil
	}
	return &lock, nil
}

func (r *SweepLockRepository) Upsert(ctx context.Context, lock sweep.Lock) error {
	t := r.db.locks
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.t[lockKey{date: lock.Date, scope: lock.Scope}] = lock
	return nil
}
