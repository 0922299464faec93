package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const recordColumns = `
	id, subject_type, subject_id, group_id, to_char(date, 'YYYY-MM-DD'),
	state, status, method, check_in_at, check_out_at,
	verified, auto_marked, created_at, updated_at`

type attendanceRepository struct {
	db *database.DB
}

func scanRecord(row pgx.Row) (attendance.Record, error) {
	var (
		rec         attendance.Record
		subjectType string
		state       string
		status      string
		method      *string
	)
	err := row.Scan(
		&rec.ID, &subjectType, &rec.SubjectID, &rec.GroupID, &rec.Date,
		&state, &status, &method, &rec.CheckInAt, &rec.CheckOutAt,
		&rec.Verified, &rec.AutoMarked, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, err
	}
	rec.SubjectType = attendance.SubjectType(subjectType)
	rec.State = attendance.State(state)
	rec.Status = attendance.Status(status)
	if method != nil {
		m := attendance.Method(*method)
		rec.Method = &m
	}
	return rec, nil
}

func methodArg(m *attendance.Method) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}

// FindByKey implements attendance.AttendanceRepository.
func (a *attendanceRepository) FindByKey(ctx context.Context, key attendance.Key) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT` + recordColumns + `
		FROM attendance_records
		WHERE subject_type = $1
		  AND subject_id = $2
		  AND date = $3
		LIMIT 1
	`

	rec, err := scanRecord(q.QueryRow(ctx, query, string(key.SubjectType), key.SubjectID, key.Date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by key: %w", err)
	}

	return &rec, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT` + recordColumns + ` FROM attendance_records WHERE id = $1`

	rec, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance by ID: %w", err)
	}

	return rec, nil
}

// getByIDForUpdate locks the row for the rest of the surrounding transaction.
func (a *attendanceRepository) getByIDForUpdate(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT` + recordColumns + ` FROM attendance_records WHERE id = $1 FOR UPDATE`

	rec, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to lock attendance: %w", err)
	}

	return rec, nil
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	// The unique (subject_type, subject_id, date) constraint decides
	// concurrent creates; the loser sees no returned row.
	query := `
		INSERT INTO attendance_records (
			id, subject_type, subject_id, group_id, date,
			state, status, method, check_in_at, check_out_at,
			verified, auto_marked
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT DO NOTHING
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		rec.ID,
		string(rec.SubjectType),
		rec.SubjectID,
		rec.GroupID,
		rec.Date,
		string(rec.State),
		string(rec.Status),
		methodArg(rec.Method),
		rec.CheckInAt,
		rec.CheckOutAt,
		rec.Verified,
		rec.AutoMarked,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || database.IsUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return rec, nil
}

// CheckOut implements attendance.AttendanceRepository.
func (a *attendanceRepository) CheckOut(ctx context.Context, id string, at time.Time) (attendance.Record, error) {
	var updated attendance.Record

	err := WithTransaction(ctx, a.db, func(ctx context.Context) error {
		current, err := a.getByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		next, err := attendance.ApplyCheckOut(current, at)
		if err != nil {
			return err
		}

		q := GetQuerier(ctx, a.db)
		query := `
			UPDATE attendance_records
			SET state = $1, check_out_at = $2, updated_at = $3
			WHERE id = $4 AND state = $5
			RETURNING updated_at
		`
		if err := q.QueryRow(ctx, query,
			string(next.State), next.CheckOutAt, time.Now().UTC(), id, string(attendance.StateCheckedIn),
		).Scan(&next.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return attendance.ErrInvalidTransition
			}
			return fmt.Errorf("failed to check out attendance: %w", err)
		}

		updated = next
		return nil
	})
	if err != nil {
		return attendance.Record{}, err
	}

	return updated, nil
}

func buildRecordWhere(f attendance.RecordFilter) (string, []interface{}) {
	where := []string{"1 = 1"}
	args := []interface{}{}
	argIdx := 1

	if f.SubjectType != nil {
		where = append(where, fmt.Sprintf("subject_type = $%d", argIdx))
		args = append(args, string(*f.SubjectType))
		argIdx++
	}
	if f.SubjectID != nil && *f.SubjectID != "" {
		where = append(where, fmt.Sprintf("subject_id = $%d", argIdx))
		args = append(args, *f.SubjectID)
		argIdx++
	}
	if f.GroupID != nil && *f.GroupID != "" {
		where = append(where, fmt.Sprintf("group_id = $%d", argIdx))
		args = append(args, *f.GroupID)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.StartDate != nil && *f.StartDate != "" {
		where = append(where, fmt.Sprintf("date >= $%d", argIdx))
		args = append(args, *f.StartDate)
		argIdx++
	}
	if f.EndDate != nil && *f.EndDate != "" {
		where = append(where, fmt.Sprintf("date <= $%d", argIdx))
		args = append(args, *f.EndDate)
	}

	return strings.Join(where, " AND "), args
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	q := GetQuerier(ctx, a.db)

	where, args := buildRecordWhere(filter)

	var total int64
	countQuery := "SELECT COUNT(*) FROM attendance_records WHERE " + where
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	order := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		order = "ASC"
	}
	query := "SELECT" + recordColumns + " FROM attendance_records WHERE " + where +
		" ORDER BY date " + order + ", subject_id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, (filter.Page-1)*filter.Limit)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendances: %w", err)
	}
	defer rows.Close()

	records := make([]attendance.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	return records, total, nil
}

// SubjectIDsWithRecord implements attendance.AttendanceRepository.
func (a *attendanceRepository) SubjectIDsWithRecord(ctx context.Context, subjectType attendance.SubjectType, date string) (map[string]struct{}, error) {
	q := GetQuerier(ctx, a.db)

	rows, err := q.Query(ctx, `
		SELECT subject_id
		FROM attendance_records
		WHERE subject_type = $1 AND date = $2
	`, string(subjectType), date)
	if err != nil {
		return nil, fmt.Errorf("failed to get recorded subjects: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subject id: %w", err)
		}
		ids[id] = struct{}{}
	}

	return ids, rows.Err()
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}
