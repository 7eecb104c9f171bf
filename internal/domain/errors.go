package domain

import "errors"

var (
	// ErrNotFound indicates the referenced record or file does not exist.
	ErrNotFound = errors.New("registro no encontrado")
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
