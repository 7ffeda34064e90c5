package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrLivenessTimeout = errors.New("operation timed out")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DeliveryWarning records a realtime push that failed after the message
// was persisted. It is logged and counted, never returned to the sender.
type DeliveryWarning struct {
	ReceiverID string
	MessageID  string
	Err        error
}

func (w *DeliveryWarning) Error() string {
	return fmt.Sprintf("push of message %s to %s failed: %v", w.MessageID, w.ReceiverID, w.Err)
}

func (w *DeliveryWarning) Unwrap() error {
	return w.Err
}

// NotFoundf wraps ErrNotFound with a description.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// TimeoutAware converts a context deadline into ErrLivenessTimeout.
func TimeoutAware(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrLivenessTimeout) {
		return fmt.Errorf("%w: %v", ErrLivenessTimeout, err)
	}
	return err
}
