package report

import (
	"math"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
)

// ========================================
// SUMMARY
// ========================================

type SummaryQuery struct {
	SubjectType *attendance.SubjectType
	SubjectID   *string
	GroupID     *string
	FromDate    string
	ToDate      string
}

type StatusCounts struct {
	Present int
	Late    int
	Absent  int
}

type SubjectCounts struct {
	SubjectID string
	StatusCounts
}

// SummaryRequest selects a subject, a group, or everyone when both are nil.
type SummaryRequest struct {
	SubjectType *attendance.SubjectType `json:"subject_type,omitempty"`
	SubjectID   *string                 `json:"subject_id,omitempty"`
	GroupID     *string                 `json:"group_id,omitempty"`
	FromDate    string                  `json:"from_date"`
	ToDate      string                  `json:"to_date"`
}

func (r *SummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.SubjectID != nil && r.GroupID != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "group_id",
			Message: "subject_id and group_id cannot be combined",
		})
	}
	if r.SubjectType != nil && !r.SubjectType.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "subject_type",
			Message: "subject_type must be one of: student, staff",
		})
	}
	errs = append(errs, validateRange(r.FromDate, r.ToDate)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r SummaryRequest) Query() SummaryQuery {
	return SummaryQuery{
		SubjectType: r.SubjectType,
		SubjectID:   r.SubjectID,
		GroupID:     r.GroupID,
		FromDate:    r.FromDate,
		ToDate:      r.ToDate,
	}
}

type Summary struct {
	SubjectID         *string `json:"subject_id,omitempty"`
	GroupID           *string `json:"group_id,omitempty"`
	FromDate          string  `json:"from_date"`
	ToDate            string  `json:"to_date"`
	PresentCount      int     `json:"present_count"`
	LateCount         int     `json:"late_count"`
	AbsentCount       int     `json:"absent_count"`
	TotalSessions     int     `json:"total_sessions"`
	PercentagePresent float64 `json:"percentage_present"`
}

// NewSummary derives totals from counts. Attended sessions are present plus
// late, rounded to one decimal place.
func NewSummary(c StatusCounts) Summary {
	total := c.Present + c.Late + c.Absent
	s := Summary{
		PresentCount:  c.Present,
		LateCount:     c.Late,
		AbsentCount:   c.Absent,
		TotalSessions: total,
	}
	if total > 0 {
		s.PercentagePresent = math.Round(float64(c.Present+c.Late)/float64(total)*1000) / 10
	}
	return s
}

// ========================================
// GROUP BREAKDOWN
// ========================================

type GroupBreakdownRequest struct {
	Scope    attendance.SubjectType `json:"scope"`
	GroupID  string                 `json:"group_id"`
	FromDate string                 `json:"from_date"`
	ToDate   string                 `json:"to_date"`
}

func (r *GroupBreakdownRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Scope == "" {
		r.Scope = attendance.SubjectStudent
	}
	if !r.Scope.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "scope",
			Message: "scope must be one of: student, staff",
		})
	}
	if validator.IsEmpty(r.GroupID) {
		errs = append(errs, validator.ValidationError{
			Field:   "group_id",
			Message: "group_id is required",
		})
	}
	errs = append(errs, validateRange(r.FromDate, r.ToDate)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type GroupBreakdown struct {
	GroupID  string    `json:"group_id"`
	FromDate string    `json:"from_date"`
	ToDate   string    `json:"to_date"`
	Total    Summary   `json:"total"`
	Subjects []Summary `json:"subjects"`
}

func validateRange(from, to string) validator.ValidationErrors {
	var errs validator.ValidationErrors

	_, fromValid := validator.IsValidDate(from)
	if !fromValid {
		errs = append(errs, validator.ValidationError{
			Field:   "from_date",
			Message: "from_date must be in YYYY-MM-DD format",
		})
	}
	_, toValid := validator.IsValidDate(to)
	if !toValid {
		errs = append(errs, validator.ValidationError{
			Field:   "to_date",
			Message: "to_date must be in YYYY-MM-DD format",
		})
	}
	if fromValid && toValid && to < from {
		errs = append(errs, validator.ValidationError{
			Field:   "to_date",
			Message: ErrInvalidDateRange.Error(),
		})
	}
	return errs
}
