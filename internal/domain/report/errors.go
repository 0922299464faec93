package report

import "errors"

var (
	ErrInvalidDateRange = errors.New("end date must not be before start date")
	ErrGroupNotFound    = errors.New("group has no subjects")
)
