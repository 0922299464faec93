package sweep

import (
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
)

type SweepRequest struct {
	Scope attendance.SubjectType `json:"scope"`
	Date  string                 `json:"date"` // YYYY-MM-DD
	Force bool                   `json:"force"`
}

func (r *SweepRequest) Validate() error {
	var errs validator.ValidationErrors

	if !r.Scope.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "scope",
			Message: "scope must be one of: student, staff",
		})
	}
	if _, valid := validator.IsValidDate(r.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipBeforeClose  SkipReason = "before_close_cutoff"
	SkipNotSchoolDay SkipReason = "not_school_day"
	SkipAlreadySwept SkipReason = "already_completed"
)

type SweepResult struct {
	Scope      string     `json:"scope"`
	Date       string     `json:"date"`
	Marked     int        `json:"marked"`
	Failed     int        `json:"failed"`
	Skipped    bool       `json:"skipped"`
	SkipReason SkipReason `json:"skip_reason,omitempty"`
	Completed  bool       `json:"completed"`
}
