// Package apperror defines the error taxonomy shared by the store, services
// and HTTP layers.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a user or reset token does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is matched by every ConflictError.
	ErrConflict = errors.New("conflict")

	// ErrInvalidCredentials covers both an unknown identifier and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email/username or password")

	// ErrTokenInvalid is returned for malformed, tampered or unknown tokens.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrSelfReferral is returned when a user supplies their own username as referral code.
	ErrSelfReferral = errors.New("you cannot refer yourself")
)

// FieldError is a single violated rule on an inbound field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError carries every violated rule of a request at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ConflictError reports a write that collided with an existing unique value.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// Is makes errors.Is(err, ErrConflict) true for any ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
