package entities

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors. Every typed error below matches exactly one of them via errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("concurrent allocation conflict")
	ErrInUse             = errors.New("still referenced")
)

// ValidationError reports a rejected input before any state change
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown product, active, lot or other record
type NotFoundError struct {
	Kind string
	Key  string
}

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientStockError reports that FIFO could not cover a request.
// No movement has been written when it is returned.
type InsufficientStockError struct {
	ProductID ProductID
	Unit      QuantityUnit
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %s %s, available %s %s",
		e.ProductID, e.Requested.String(), e.Unit, e.Available.String(), e.Unit)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ConflictError reports that a lot went negative because of a concurrent writer.
// The caller must retry the whole request.
type ConflictError struct {
	LotID   LotID
	Balance decimal.Decimal
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("lot %s balance would become %s: concurrent allocation detected, retry the request",
		e.LotID, e.Balance.String())
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// InUseError reports a refused delete of referenced reference data
type InUseError struct {
	Kind string
	Key  string
	By   string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s %s is referenced by %s", e.Kind, e.Key, e.By)
}

func (e *InUseError) Is(target error) bool { return target == ErrInUse }
