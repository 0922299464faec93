package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/user"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/sse"
)

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	recorder attendance.Recorder
	hub      *sse.Hub
}

// NewAttendanceHandler creates the handler. hub may be nil, in which case
// committed records are not broadcast.
func NewAttendanceHandler(recorder attendance.Recorder, hub *sse.Hub) AttendanceHandler {
	return &attendanceHandlerImpl{
		recorder: recorder,
		hub:      hub,
	}
}

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	result, ok := h.record(w, r, attendance.ModeIn)
	if !ok {
		return
	}

	response.Created(w, "Check in successful", result)
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	result, ok := h.record(w, r, attendance.ModeOut)
	if !ok {
		return
	}

	response.SuccessWithMessage(w, "Check out successful", result)
}

// record decodes the body, binds it to the caller and runs the recorder.
// It writes the error response itself and reports whether it succeeded.
func (h *attendanceHandlerImpl) record(w http.ResponseWriter, r *http.Request, mode attendance.Mode) (attendance.AttendanceResponse, bool) {
	var req attendance.RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("Failed to decode attendance request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return attendance.AttendanceResponse{}, false
	}

	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return attendance.AttendanceResponse{}, false
	}

	subjectType, subjectID, err := resolveSubject(id, req.SubjectType, req.SubjectID)
	if err != nil {
		response.HandleError(w, err)
		return attendance.AttendanceResponse{}, false
	}
	req.SubjectType = subjectType
	req.SubjectID = subjectID
	req.Mode = mode
	req.ActorIsStaff = id.Role.IsStaff()

	result, err := h.recorder.Record(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return attendance.AttendanceResponse{}, false
	}
	h.broadcast(mode, result)
	return result, true
}

// Status implements AttendanceHandler.
func (h *attendanceHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	query := r.URL.Query()
	subjectType, subjectID, err := resolveSubject(id, attendance.SubjectType(query.Get("subject_type")), query.Get("subject_id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.recorder.Status(r.Context(), attendance.StatusRequest{
		SubjectType: subjectType,
		SubjectID:   subjectID,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := attendance.RecordFilter{}

	if subjectType := query.Get("subject_type"); subjectType != "" {
		st := attendance.SubjectType(subjectType)
		filter.SubjectType = &st
	}

	if subjectID := query.Get("subject_id"); subjectID != "" {
		filter.SubjectID = &subjectID
	}

	if groupID := query.Get("group_id"); groupID != "" {
		filter.GroupID = &groupID
	}

	if status := query.Get("status"); status != "" {
		s := attendance.Status(status)
		filter.Status = &s
	}

	// Date range filters
	if startDate := query.Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}

	if endDate := query.Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	// Pagination
	filter.Page = 1
	if p := query.Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			filter.Page = pageNum
		}
	}

	filter.Limit = 20
	if l := query.Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil && limitNum > 0 {
			filter.Limit = limitNum
		}
	}

	filter.SortOrder = query.Get("sort_order")

	result, err := h.recorder.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Attendances, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
		Showing:    result.Showing,
	})
}

// resolveSubject fills in the caller's own identity when the request omits
// it. Students can only act on themselves; staff and kiosks may name any
// subject.
func resolveSubject(id middleware.Identity, subjectType attendance.SubjectType, subjectID string) (attendance.SubjectType, string, error) {
	if subjectID == "" {
		subjectID = id.UserID
	}
	if subjectType == "" {
		switch id.Role {
		case user.RoleStudent:
			subjectType = attendance.SubjectStudent
		case user.RoleStaff, user.RoleAdmin:
			subjectType = attendance.SubjectStaff
		}
	}

	if id.Role == user.RoleStudent && (subjectID != id.UserID || subjectType != attendance.SubjectStudent) {
		return "", "", user.ErrOtherSubject
	}
	return subjectType, subjectID, nil
}
