package report

import "context"

// ReportService computes attendance summaries for reporting screens.
type ReportService interface {
	// Summarize aggregates one subject, one group or everyone over a range
	Summarize(ctx context.Context, req SummaryRequest) (Summary, error)

	// GroupBreakdown summarizes every roster member of a group over a range
	GroupBreakdown(ctx context.Context, req GroupBreakdownRequest) (GroupBreakdown, error)
}
