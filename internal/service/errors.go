// Package service holds the account, coin and generation logic shared by
// the HTTP handlers
package service

import "errors"

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserNotFound          = errors.New("user not found")
	ErrDuplicateEmail        = errors.New("this email is already registered")
	ErrInsufficientQuota     = errors.New("no coins left")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrResetCooldown         = errors.New("a reset link was sent recently")
	ErrUpstream              = errors.New("upstream failure")
	ErrUpstreamTimeout       = errors.New("upstream timed out")
	ErrQueueFull             = errors.New("generation queue full")
)

// ValidationError is returned when caller supplied input is unusable.
// Its message is safe to show to the user
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
