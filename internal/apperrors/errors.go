package apperrors

import "errors"

// Shared error taxonomy for the coordination core. Components wrap these with
// fmt.Errorf("...: %w", Err...) so callers can branch with errors.Is while
// HTTP controllers map them to status codes in one place.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrDuplicate  = errors.New("duplicate")
	ErrConnection = errors.New("connection unavailable")
)
