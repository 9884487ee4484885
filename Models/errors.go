package Models

import (
	"errors"
	"strings"
)

var (
	ErrInvalidTransition = errors.New("payment status transition not allowed")
	ErrForbidden         = errors.New("forbidden: insufficient permissions")
	// ErrNotConfigured marks a feature whose API key or endpoint is absent.
	// It is surfaced to the caller immediately and never retried.
	ErrNotConfigured = errors.New("feature not configured")

	ErrNoPaymentPending = errors.New("no prescription payment pending for this thread")
	ErrSlotTaken        = errors.New("doctor already has a consultation at that time")
	ErrNotDoctor        = errors.New("selected user is not a doctor")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func validation(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
