package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
)

// ========================================
// RECORDING DTOs
// ========================================

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Proof is what the client presents to authorize a check-in or check-out.
// A nil Location means the device could not obtain a position.
type Proof struct {
	Token             *string   `json:"token,omitempty"`
	BiometricVerified *bool     `json:"biometric_verified,omitempty"`
	FaceImageURL      *string   `json:"face_image_url,omitempty"`
	Location          *Location `json:"location,omitempty"`
}

type RecordRequest struct {
	SubjectType SubjectType `json:"subject_type"`
	SubjectID   string      `json:"subject_id"`
	GroupID     *string     `json:"group_id,omitempty"`
	Mode        Mode        `json:"-"`
	Method      Method      `json:"method"`
	Proof

	// Set by the handler from the caller's role; manual marking needs it.
	ActorIsStaff bool `json:"-"`
}

func (r *RecordRequest) Validate() error {
	var errs validator.ValidationErrors

	if !r.SubjectType.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "subject_type",
			Message: "subject_type must be one of: student, staff",
		})
	}

	if validator.IsEmpty(r.SubjectID) {
		errs = append(errs, validator.ValidationError{
			Field:   "subject_id",
			Message: "subject_id is required",
		})
	}

	if r.Mode != ModeIn && r.Mode != ModeOut {
		errs = append(errs, validator.ValidationError{
			Field:   "mode",
			Message: "mode must be one of: in, out",
		})
	}

	if !r.Method.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "method",
			Message: "method must be one of: qrToken, biometric, manual",
		})
	}

	if r.Location != nil {
		if !validator.IsValidLatitude(r.Location.Latitude) {
			errs = append(errs, validator.ValidationError{
				Field:   "location.latitude",
				Message: "latitude must be between -90 and 90",
			})
		}
		if !validator.IsValidLongitude(r.Location.Longitude) {
			errs = append(errs, validator.ValidationError{
				Field:   "location.longitude",
				Message: "longitude must be between -180 and 180",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type AttendanceResponse struct {
	ID          string  `json:"id"`
	SubjectType string  `json:"subject_type"`
	SubjectID   string  `json:"subject_id"`
	GroupID     *string `json:"group_id,omitempty"`
	Date        string  `json:"date"`
	State       string  `json:"state"`
	Status      string  `json:"status"`
	Method      *string `json:"method,omitempty"`
	CheckInAt   *string `json:"check_in_at,omitempty"`
	CheckOutAt  *string `json:"check_out_at,omitempty"`
	Verified    bool    `json:"verified"`
	AutoMarked  bool    `json:"auto_marked"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.UTC().Format(time.RFC3339)
	return &format
}

// ToResponse maps a record to its API representation.
func ToResponse(r Record) AttendanceResponse {
	var method *string
	if r.Method != nil {
		m := string(*r.Method)
		method = &m
	}
	return AttendanceResponse{
		ID:          r.ID,
		SubjectType: string(r.SubjectType),
		SubjectID:   r.SubjectID,
		GroupID:     r.GroupID,
		Date:        r.Date,
		State:       string(r.State),
		Status:      string(r.Status),
		Method:      method,
		CheckInAt:   timePtrToString(r.CheckInAt),
		CheckOutAt:  timePtrToString(r.CheckOutAt),
		Verified:    r.Verified,
		AutoMarked:  r.AutoMarked,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ========================================
// STATUS DTOs
// ========================================

type StatusRequest struct {
	SubjectType SubjectType `json:"subject_type"`
	SubjectID   string      `json:"subject_id"`
}

func (r *StatusRequest) Validate() error {
	var errs validator.ValidationErrors

	if !r.SubjectType.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "subject_type",
			Message: "subject_type must be one of: student, staff",
		})
	}
	if validator.IsEmpty(r.SubjectID) {
		errs = append(errs, validator.ValidationError{
			Field:   "subject_id",
			Message: "subject_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type StatusResponse struct {
	Date            string              `json:"date"`
	HasRecord       bool                `json:"has_record"`
	State           string              `json:"state,omitempty"`
	TodayAttendance *AttendanceResponse `json:"today_attendance,omitempty"`
	CanCheckIn      bool                `json:"can_check_in"`
	CanCheckOut     bool                `json:"can_check_out"`
	Message         string              `json:"message"`
}

// ========================================
// LISTING DTOs
// ========================================

// RecordFilter selects records for listing and aggregation. Nil fields do
// not constrain the query.
type RecordFilter struct {
	SubjectType *SubjectType `json:"subject_type,omitempty"`
	SubjectID   *string      `json:"subject_id,omitempty"`
	GroupID     *string      `json:"group_id,omitempty"`
	Status      *Status      `json:"status,omitempty"`
	StartDate   *string      `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate     *string      `json:"end_date,omitempty"`   // YYYY-MM-DD

	// Pagination, zero Limit returns every match
	Page  int `json:"page"`
	Limit int `json:"limit"`

	SortOrder string `json:"sort_order"` // asc, desc by date
}

func (f *RecordFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.SubjectType != nil && !f.SubjectType.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "subject_type",
			Message: "subject_type must be one of: student, staff",
		})
	}

	if f.Status != nil {
		validStatuses := []string{string(StatusPresent), string(StatusLate), string(StatusAbsent)}
		if !validator.IsInSlice(string(*f.Status), validStatuses) {
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be one of: present, late, absent",
			})
		}
	}

	if f.StartDate != nil {
		if _, valid := validator.IsValidDate(*f.StartDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.EndDate != nil {
		if _, valid := validator.IsValidDate(*f.EndDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.StartDate != nil && f.EndDate != nil && *f.EndDate < *f.StartDate {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Limit < 0 || f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be between 1 and 100",
		})
	}
	if f.Limit > 0 && f.Page == 0 {
		f.Page = 1
	}

	if f.SortOrder == "" {
		f.SortOrder = "desc"
	} else if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
		errs = append(errs, validator.ValidationError{
			Field:   "sort_order",
			Message: "sort_order must be one of: asc, desc",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}
