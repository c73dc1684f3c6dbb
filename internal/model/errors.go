package model

import "errors"

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrTagNotFound   = errors.New("tag not found")
	ErrTagExists     = errors.New("tag with this name or slug already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("a user with that username already exists")
)

// ValidationError is a user-correctable problem with one submitted field.
// Nothing is written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
