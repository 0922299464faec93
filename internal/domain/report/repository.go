package report

import "context"

// ReportRepository aggregates ledger rows. It never mutates.
type ReportRepository interface {
	// CountStatuses counts records per status over the query range
	CountStatuses(ctx context.Context, q SummaryQuery) (StatusCounts, error)

	// CountStatusesBySubject returns one row per subject that holds at least
	// one record in range
	CountStatusesBySubject(ctx context.Context, q SummaryQuery) ([]SubjectCounts, error)
}
