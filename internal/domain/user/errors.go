package user

import "errors"

var (
	ErrInvalidToken = errors.New("invalid or missing access token")
	ErrOtherSubject = errors.New("only staff can act on behalf of another subject")
)
