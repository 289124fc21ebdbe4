package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates input rejected before any write occurred.
	ErrValidation = errors.New("validation failed")
	// ErrReferentialConflict indicates a delete refused because dependent rows exist.
	ErrReferentialConflict = errors.New("referential conflict")
	// ErrDeliveryFailure indicates document rendering or email transmission failed.
	// The ledger mutation that triggered the delivery is never rolled back.
	ErrDeliveryFailure = errors.New("delivery failure")
)

// ValidationError carries the offending field alongside ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError for a named field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
