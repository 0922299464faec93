package sweep

import "errors"

var (
	ErrSweepInProgress = errors.New("a sweep for this date and scope is already running")
	ErrFutureDate      = errors.New("cannot sweep a date in the future")
)
