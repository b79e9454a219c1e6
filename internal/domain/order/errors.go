package order

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order lookup and concurrent edits.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEditConflict  = errors.New("order was modified concurrently")
)

// MalformedOrderError indicates a structurally incomplete order: a required
// field is missing.
type MalformedOrderError struct {
	Field string
}

func (e *MalformedOrderError) Error() string {
	return fmt.Sprintf("malformed order: %s is required", e.Field)
}

// OwnershipMismatchError indicates the order's declared owner does not match
// the requesting user or the owner on file.
type OwnershipMismatchError struct {
	OrderID string
}

func (e *OwnershipMismatchError) Error() string {
	if e.OrderID == "" {
		return "order owner does not match requesting user"
	}
	return fmt.Sprintf("order %s does not belong to the declared owner", e.OrderID)
}

// UnknownStoreError indicates the declared store does not exist in the
// store directory.
type UnknownStoreError struct {
	StoreID string
}

func (e *UnknownStoreError) Error() string {
	return fmt.Sprintf("store %s does not exist", e.StoreID)
}

// PickupTimeTooSoonError indicates the pickup time is inside the minimum
// lead window.
type PickupTimeTooSoonError struct {
	PickupTime time.Time
	Earliest   time.Time
}

func (e *PickupTimeTooSoonError) Error() string {
	return fmt.Sprintf("pickup time %s is too soon, earliest is %s",
		e.PickupTime.Format(time.RFC3339), e.Earliest.Format(time.RFC3339))
}

// UnpriceableOrderError indicates the catalog could not supply a complete
// price quote for the order. Transport distinguishes "the call failed"
// from "the remote said no data"; clients see the same rejection either
// way, but the two are logged apart since only the former is retryable.
type UnpriceableOrderError struct {
	Transport bool
	cause     error
}

func (e *UnpriceableOrderError) Error() string {
	return fmt.Sprintf("order is not priceable: %v", e.cause)
}

func (e *UnpriceableOrderError) Unwrap() error { return e.cause }

// PriceMismatchError indicates the client-submitted total does not match the
// server-derived total within tolerance.
type PriceMismatchError struct {
	Submitted decimal.Decimal
	Computed  decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("submitted price %s does not match computed price %s",
		e.Submitted, e.Computed)
}

// DeletionNotPermittedError indicates an order may not be cancelled: wrong
// owner or role, or the pickup cutoff has passed.
type DeletionNotPermittedError struct {
	Reason string
}

func (e *DeletionNotPermittedError) Error() string {
	return fmt.Sprintf("order cannot be deleted: %s", e.Reason)
}
