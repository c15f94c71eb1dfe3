package nutrition

import (
	"errors"
	"fmt"
)

// ErrInvalidProfile matches every *InvalidProfileError via errors.Is.
var ErrInvalidProfile = errors.New("invalid profile")

// InvalidProfileError reports the first profile field that failed validation.
type InvalidProfileError struct {
	Field  string
	Reason string
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid profile: %s %s", e.Field, e.Reason)
}

func (e *InvalidProfileError) Is(target error) bool {
	return target == ErrInvalidProfile
}

func invalid(field, reason string) *InvalidProfileError {
	return &InvalidProfileError{Field: field, Reason: reason}
}
