package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is. Every structured error below
// unwraps to one of them.
var (
	// ErrValidation marks a field constraint violation.
	ErrValidation = errors.New("validation failed")
	// ErrState marks an operation that is not allowed in the entity's current state.
	ErrState = errors.New("invalid state")
	// ErrStock marks a request that exceeds available product quantity.
	ErrStock = errors.New("insufficient stock")
	// ErrReference marks a record pointing at a product or partner that does not exist.
	ErrReference = errors.New("unresolved reference")
	// ErrInUse marks a delete of an entity other records still reference.
	ErrInUse = errors.New("entity still referenced")
	// ErrNotFound marks a lookup of an unknown id.
	ErrNotFound = errors.New("entity not found")
)

// ValidationError describes a rejected field value.
type ValidationError struct {
	Entity  EntityType
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StateError describes a workflow action attempted from the wrong state.
type StateError struct {
	Entity EntityType
	ID     int
	State  string
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s %d in state %q", e.Action, e.Entity, e.ID, e.State)
}

func (e *StateError) Unwrap() error { return ErrState }

// StockError reports a quantity shortfall for one product.
type StockError struct {
	ProductID int
	Product   string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d", e.Product, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrStock }

// ReferenceError reports a record whose product or customer cannot be resolved.
type ReferenceError struct {
	Entity    EntityType
	ID        int
	Missing   EntityType
	MissingID int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %d references missing %s %d", e.Entity, e.ID, e.Missing, e.MissingID)
}

func (e *ReferenceError) Unwrap() error { return ErrReference }

// InUseError rejects deleting an entity that is still referenced.
type InUseError struct {
	Entity         EntityType
	ID             int
	ReferencedBy   EntityType
	ReferencedByID int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s %d still referenced by %s %d", e.Entity, e.ID, e.ReferencedBy, e.ReferencedByID)
}

func (e *InUseError) Unwrap() error { return ErrInUse }

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Entity EntityType
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsClientError reports whether err was caused by caller input rather than
// by a persistence or infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrState) ||
		errors.Is(err, ErrStock) ||
		errors.Is(err, ErrInUse) ||
		errors.Is(err, ErrNotFound)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
