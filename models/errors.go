package models

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InvalidStateError is returned when an action does not fit the current status.
type InvalidStateError struct {
	ReconciliationId int
	Status           ReconciliationStatus
	Action           string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("reconciliation %d is %s, cannot %s", e.ReconciliationId, e.Status, e.Action)
}

type NotFoundError struct {
	Entity string
	Id     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.Id)
}

type AlreadyResolvedError struct {
	AnomalyId int
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("anomaly %d is already resolved", e.AnomalyId)
}

// PartialFailureError means one ledger write in a batch failed; the whole
// batch, and the status change it belonged to, was rolled back.
type PartialFailureError struct {
	MaterialId int
	Err        error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("inventory adjustment failed for material %d: %v", e.MaterialId, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
