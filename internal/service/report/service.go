package report

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/roster"
)

type ReportServiceImpl struct {
	reportRepo report.ReportRepository
	rosterRepo roster.RosterRepository
}

func NewReportService(reportRepo report.ReportRepository, rosterRepo roster.RosterRepository) report.ReportService {
	return &ReportServiceImpl{
		reportRepo: reportRepo,
		rosterRepo: rosterRepo,
	}
}

// Summarize implements report.ReportService.
func (s *ReportServiceImpl) Summarize(ctx context.Context, req report.SummaryRequest) (report.Summary, error) {
	if err := req.Validate(); err != nil {
		return report.Summary{}, err
	}

	counts, err := s.reportRepo.CountStatuses(ctx, req.Query())
	if err != nil {
		return report.Summary{}, fmt.Errorf("failed to get attendance counts: %w", err)
	}

	summary := report.NewSummary(counts)
	summary.SubjectID = req.SubjectID
	summary.GroupID = req.GroupID
	summary.FromDate = req.FromDate
	summary.ToDate = req.ToDate

	return summary, nil
}

// GroupBreakdown implements report.ReportService. Every current member of the
// group appears, including members with no records in range.
func (s *ReportServiceImpl) GroupBreakdown(ctx context.Context, req report.GroupBreakdownRequest) (report.GroupBreakdown, error) {
	if err := req.Validate(); err != nil {
		return report.GroupBreakdown{}, err
	}

	members, err := s.rosterRepo.ListSubjects(ctx, req.Scope, &req.GroupID)
	if err != nil {
		return report.GroupBreakdown{}, fmt.Errorf("failed to list group members: %w", err)
	}

	scope := req.Scope
	query := report.SummaryQuery{
		SubjectType: &scope,
		GroupID:     &req.GroupID,
		FromDate:    req.FromDate,
		ToDate:      req.ToDate,
	}
	rows, err := s.reportRepo.CountStatusesBySubject(ctx, query)
	if err != nil {
		return report.GroupBreakdown{}, fmt.Errorf("failed to get attendance counts per subject: %w", err)
	}
	if len(members) == 0 && len(rows) == 0 {
		return report.GroupBreakdown{}, report.ErrGroupNotFound
	}

	bySubject := make(map[string]report.StatusCounts, len(rows))
	for _, row := range rows {
		bySubject[row.SubjectID] = row.StatusCounts
	}

	// Former members with records in range still count towards the total.
	seen := make(map[string]bool, len(members))
	ids := make([]string, 0, len(members)+len(rows))
	for _, m := range members {
		seen[m.ID] = true
		ids = append(ids, m.ID)
	}
	for _, row := range rows {
		if !seen[row.SubjectID] {
			ids = append(ids, row.SubjectID)
		}
	}

	var total report.StatusCounts
	subjects := make([]report.Summary, 0, len(ids))
	for _, id := range ids {
		counts := bySubject[id]
		total.Present += counts.Present
		total.Late += counts.Late
		total.Absent += counts.Absent

		subjectID := id
		summary := report.NewSummary(counts)
		summary.SubjectID = &subjectID
		summary.GroupID = &req.GroupID
		summary.FromDate = req.FromDate
		summary.ToDate = req.ToDate
		subjects = append(subjects, summary)
	}

	totalSummary := report.NewSummary(total)
	totalSummary.GroupID = &req.GroupID
	totalSummary.FromDate = req.FromDate
	totalSummary.ToDate = req.ToDate

	return report.GroupBreakdown{
		GroupID:  req.GroupID,
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
		Total:    totalSummary,
		Subjects: subjects,
	}, nil
}
