package response

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/sweep"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/user"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Geofence rejections carry the measured distance
	var outOfRange *attendance.OutOfRangeError
	if errors.As(err, &outOfRange) {
		Error(w, http.StatusForbidden, ErrorDetail{
			Code:    attendance.ErrOutOfRange.Code,
			Kind:    string(attendance.KindVerification),
			Message: outOfRange.Error(),
			Details: map[string]string{
				"distance_meters": fmt.Sprintf("%.1f", outOfRange.DistanceMeters),
				"radius_meters":   fmt.Sprintf("%.1f", outOfRange.RadiusMeters),
			},
		})
		return
	}

	var attErr *attendance.Error
	if errors.As(err, &attErr) {
		Error(w, statusForKind(attErr.Kind), ErrorDetail{
			Code:    attErr.Code,
			Kind:    string(attErr.Kind),
			Message: attErr.Message,
		})
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, user.ErrInvalidToken):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrOtherSubject):
		Forbidden(w, err.Error())

	// Sweep errors
	case errors.Is(err, sweep.ErrSweepInProgress):
		Error(w, http.StatusConflict, ErrorDetail{
			Code:    "SWEEP_IN_PROGRESS",
			Kind:    string(attendance.KindStateConflict),
			Message: err.Error(),
		})
	case errors.Is(err, sweep.ErrFutureDate):
		Error(w, http.StatusUnprocessableEntity, ErrorDetail{
			Code:    "FUTURE_DATE",
			Kind:    string(attendance.KindValidation),
			Message: err.Error(),
		})

	// Report errors
	case errors.Is(err, report.ErrGroupNotFound):
		NotFound(w, "Group not found")

	// Timeouts fail closed
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		slog.Error("Request did not complete in time", "error", err)
		Error(w, http.StatusServiceUnavailable, ErrorDetail{
			Code:    "TIMEOUT",
			Kind:    string(attendance.KindInfrastructure),
			Message: "The request timed out, nothing was recorded",
		})

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

func statusForKind(kind attendance.Kind) int {
	switch kind {
	case attendance.KindValidation:
		return http.StatusUnprocessableEntity
	case attendance.KindPermission, attendance.KindVerification:
		return http.StatusForbidden
	case attendance.KindStateConflict:
		return http.StatusConflict
	case attendance.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
