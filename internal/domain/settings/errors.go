package settings

import "errors"

var (
	ErrInvalidCutoff   = errors.New("cutoff must be in HH:mm format")
	ErrInvalidTimezone = errors.New("unknown timezone")
)
