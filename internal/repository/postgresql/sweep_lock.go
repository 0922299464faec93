package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/sweep"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type sweepLockRepositoryImpl struct {
	db *database.DB
}

func NewSweepLockRepository(db *database.DB) sweep.LockRepository {
	return &sweepLockRepositoryImpl{db: db}
}

// Get implements sweep.LockRepository.
func (r *sweepLockRepositoryImpl) Get(ctx context.Context, date string, scope attendance.SubjectType) (*sweep.Lock, error) {
	q := GetQuerier(ctx, r.db)

	lock := sweep.Lock{Scope: scope}
	err := q.QueryRow(ctx, `
		SELECT to_char(date, 'YYYY-MM-DD'), completed_at, marked_count
		FROM sweep_locks
		WHERE date = $1 AND scope = $2
	`, date, string(scope)).Scan(&lock.Date, &lock.CompletedAt, &lock.MarkedCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sweep lock: %w", err)
	}

	return &lock, nil
}

// Upsert implements sweep.LockRepository.
func (r *sweepLockRepositoryImpl) Upsert(ctx context.Context, lock sweep.Lock) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO sweep_locks (date, scope, completed_at, marked_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date, scope) DO UPDATE SET
			completed_at = EXCLUDED.completed_at,
			marked_count = EXCLUDED.marked_count
	`, lock.Date, string(lock.Scope), lock.CompletedAt, lock.MarkedCount)
	if err != nil {
		return fmt.Errorf("failed to upsert sweep lock: %w", err)
	}

	return nil
}
