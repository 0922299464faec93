package http

import (
	"net/http"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ReportHandler interface {
	// Summary handles GET /reports/summary
	Summary(w http.ResponseWriter, r *http.Request)

	// GroupBreakdown handles GET /reports/groups/{groupID}
	GroupBreakdown(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
}

func NewReportHandler(reportService report.ReportService) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
	}
}

func (h *reportHandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := report.SummaryRequest{
		FromDate: query.Get("from_date"),
		ToDate:   query.Get("to_date"),
	}
	if subjectType := query.Get("subject_type"); subjectType != "" {
		st := attendance.SubjectType(subjectType)
		req.SubjectType = &st
	}
	if subjectID := query.Get("subject_id"); subjectID != "" {
		req.SubjectID = &subjectID
	}
	if groupID := query.Get("group_id"); groupID != "" {
		req.GroupID = &groupID
	}

	result, err := h.reportService.Summarize(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *reportHandlerImpl) GroupBreakdown(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := report.GroupBreakdownRequest{
		Scope:    attendance.SubjectType(query.Get("scope")),
		GroupID:  chi.URLParam(r, "groupID"),
		FromDate: query.Get("from_date"),
		ToDate:   query.Get("to_date"),
	}

	result, err := h.reportService.GroupBreakdown(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
