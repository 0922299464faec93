package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
)

// Kind groups errors by how the caller should react to them.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindPermission     Kind = "permission_error"
	KindStateConflict  Kind = "state_conflict"
	KindVerification   Kind = "verification_failure"
	KindNotFound       Kind = "not_found"
	KindInfrastructure Kind = "infrastructure_error"
)

// Error is a user-facing attendance failure with a stable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// Validation
	ErrMalformedToken        = newError(KindValidation, "MALFORMED_TOKEN", "qr token payload is malformed")
	ErrGeofenceNotConfigured = newError(KindValidation, "GEOFENCE_NOT_CONFIGURED", "attendance location has not been configured by an administrator")
	ErrProofRequired         = newError(KindValidation, "PROOF_REQUIRED", "a qr token or biometric proof is required")

	// Permission
	ErrLocationPermissionDenied = newError(KindPermission, "LOCATION_PERMISSION_DENIED", "location access is required to record attendance")
	ErrManualNotAllowed         = newError(KindPermission, "MANUAL_NOT_ALLOWED", "only staff can record attendance manually")

	// State conflicts
	ErrAlreadyCheckedIn  = newError(KindStateConflict, "ALREADY_CHECKED_IN", "already checked in today")
	ErrAlreadyCheckedOut = newError(KindStateConflict, "ALREADY_CHECKED_OUT", "already checked out today")
	ErrMustCheckInFirst  = newError(KindStateConflict, "MUST_CHECK_IN_FIRST", "check in is required before check out")
	ErrDayClosed         = newError(KindStateConflict, "DAY_CLOSED", "attendance for today is closed and was marked absent")
	ErrInvalidTransition = newError(KindStateConflict, "INVALID_TRANSITION", "attendance transition is not allowed")
	ErrDuplicateRecord   = newError(KindStateConflict, "DUPLICATE_RECORD", "attendance record already exists for this day")

	// Verification
	ErrInvalidToken      = newError(KindVerification, "INVALID_TOKEN", "qr token does not belong to this subject")
	ErrInvalidSignature  = newError(KindVerification, "INVALID_SIGNATURE", "qr token signature is invalid")
	ErrTokenExpired      = newError(KindVerification, "TOKEN_EXPIRED", "qr token is too old")
	ErrNotEnrolled       = newError(KindVerification, "NOT_ENROLLED", "subject has no enrolled biometric reference")
	ErrBiometricMismatch = newError(KindVerification, "BIOMETRIC_MISMATCH", "biometric verification failed")
	ErrOutOfRange        = newError(KindVerification, "OUT_OF_RANGE", "you are outside the allowed radius")

	ErrRecordNotFound = newError(KindNotFound, "RECORD_NOT_FOUND", "attendance record not found")
)

// OutOfRangeError carries the measured distance for user-facing messaging.
type OutOfRangeError struct {
	DistanceMeters float64
	RadiusMeters   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("you are %.0f m from school, the allowed radius is %.0f m", e.DistanceMeters, e.RadiusMeters)
}

func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// KindOf classifies any error returned by the attendance services.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var attErr *Error
	if errors.As(err, &attErr) {
		return attErr.Kind
	}
	if errors.Is(err, ErrOutOfRange) {
		return KindVerification
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return KindValidation
	}
	return KindInfrastructure
}

// CodeOf returns the stable code of err, or a generic code for errors that
// did not originate in this package.
func CodeOf(err error) string {
	var attErr *Error
	if errors.As(err, &attErr) {
		return attErr.Code
	}
	if errors.Is(err, ErrOutOfRange) {
		return ErrOutOfRange.Code
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return "VALIDATION_ERROR"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	return "INFRASTRUCTURE_ERROR"
}
