package booking

import (
	"errors"
	"fmt"
)

var ErrInvalidCheckoutSignature = errors.New("invalid checkout signature")

// ValidationError reports a malformed booking request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
