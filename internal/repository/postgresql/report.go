package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
)

type reportRepositoryImpl struct {
	db *database.DB
}

func NewReportRepository(db *database.DB) report.ReportRepository {
	return &reportRepositoryImpl{db: db}
}

const statusCountColumns = `
	COUNT(*) FILTER (WHERE status = 'present'),
	COUNT(*) FILTER (WHERE status = 'late'),
	COUNT(*) FILTER (WHERE status = 'absent')`

func buildSummaryWhere(q report.SummaryQuery) (string, []interface{}) {
	where := []string{"date >= $1", "date <= $2"}
	args := []interface{}{q.FromDate, q.ToDate}
	argIdx := 3

	if q.SubjectType != nil {
		where = append(where, fmt.Sprintf("subject_type = $%d", argIdx))
		args = append(args, string(*q.SubjectType))
		argIdx++
	}
	if q.SubjectID != nil {
		where = append(where, fmt.Sprintf("subject_id = $%d", argIdx))
		args = append(args, *q.SubjectID)
		argIdx++
	}
	if q.GroupID != nil {
		where = append(where, fmt.Sprintf("group_id = $%d", argIdx))
		args = append(args, *q.GroupID)
	}

	return strings.Join(where, " AND "), args
}

// CountStatuses counts records per status over the query range
func (r *reportRepositoryImpl) CountStatuses(ctx context.Context, q report.SummaryQuery) (report.StatusCounts, error) {
	querier := GetQuerier(ctx, r.db)

	where, args := buildSummaryWhere(q)
	query := "SELECT" + statusCountColumns + " FROM attendance_records WHERE " + where

	var counts report.StatusCounts
	if err := querier.QueryRow(ctx, query, args...).Scan(&counts.Present, &counts.Late, &counts.Absent); err != nil {
		return report.StatusCounts{}, fmt.Errorf("failed to count attendance statuses: %w", err)
	}

	return counts, nil
}

// CountStatusesBySubject returns one row per subject holding a record in range
func (r *reportRepositoryImpl) CountStatusesBySubject(ctx context.Context, q report.SummaryQuery) ([]report.SubjectCounts, error) {
	querier := GetQuerier(ctx, r.db)

	where, args := buildSummaryWhere(q)
	query := "SELECT subject_id," + statusCountColumns + " FROM attendance_records WHERE " + where +
		" GROUP BY subject_id ORDER BY subject_id"

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count attendance per subject: %w", err)
	}
	defer rows.Close()

	var result []report.SubjectCounts
	for rows.Next() {
		var row report.SubjectCounts
		if err := rows.Scan(&row.SubjectID, &row.Present, &row.Late, &row.Absent); err != nil {
			return nil, fmt.Errorf("failed to scan subject counts: %w", err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}
