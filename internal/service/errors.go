package service

import (
	"errors"
	"fmt"

	"github.com/mindcare-tw/mindcare-backend/internal/repository"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
)

// ErrNotFound is returned when a referenced record does not exist
var ErrNotFound = repository.ErrNotFound

// ErrAuthorization is returned when an identity pair does not match the
// stored record. It never says which field mismatched.
var ErrAuthorization = errors.New("identity does not match")

// ValidationError reports malformed or incomplete input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StateError reports an illegal status transition
type StateError struct {
	From model.AppointmentStatus
	To   model.AppointmentStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot move appointment from %s to %s", e.From, e.To)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsState reports whether err is a StateError
func IsState(err error) bool {
	var s *StateError
	return errors.As(err, &s)
}
