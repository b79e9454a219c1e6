package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/ovenline/pizzeria-orders/internal/directory"
)

// MinPickupLead is the minimum distance between "now" and an order's pickup
// time. The same lead gates cancellation: an order inside the window can no
// longer be deleted.
const MinPickupLead = 30 * time.Minute

// Validator enforces structural, ownership, and temporal invariants on an
// incoming order before any pricing work happens. It only reads.
type Validator struct {
	orders Repository
	stores directory.StoreDirectory
	now    func() time.Time
}

// NewValidator creates a Validator using the real clock.
func NewValidator(orders Repository, stores directory.StoreDirectory) *Validator {
	return &Validator{orders: orders, stores: stores, now: time.Now}
}

// Validate runs the checks in order, short-circuiting on the first failure:
// structural presence, ownership (declared owner must be the requester, and
// on edits must match the owner on file), store existence, pickup lead.
func (v *Validator) Validate(ctx context.Context, o *Order, requestingUserID string) error {
	if o == nil {
		return &MalformedOrderError{Field: "order"}
	}
	if len(o.Foods) == 0 {
		return &MalformedOrderError{Field: "foods"}
	}
	if o.UserID == "" {
		return &MalformedOrderError{Field: "userId"}
	}
	if o.PickupTime.IsZero() {
		return &MalformedOrderError{Field: "pickupTime"}
	}
	if o.CouponIDs == nil {
		return &MalformedOrderError{Field: "couponIds"}
	}

	if o.UserID != requestingUserID {
		return &OwnershipMismatchError{}
	}
	if o.ID != "" {
		existing, err := v.orders.Get(ctx, o.ID)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return ErrOrderNotFound
			}
			return errors.Wrap(err, "load existing order")
		}
		if existing.UserID != o.UserID {
			return &OwnershipMismatchError{OrderID: o.ID}
		}
		// Clients that track versions send their own; everyone else edits
		// against the version current at validation time.
		if o.Version == 0 {
			o.Version = existing.Version
		}
	}

	exists, err := v.stores.Exists(ctx, o.StoreID)
	if err != nil {
		return errors.Wrap(err, "check store")
	}
	if !exists {
		return &UnknownStoreError{StoreID: o.StoreID}
	}

	earliest := v.now().Add(MinPickupLead)
	if o.PickupTime.Before(earliest) {
		return &PickupTimeTooSoonError{PickupTime: o.PickupTime, Earliest: earliest}
	}

	return nil
}

// Cancelable reports whether the order may still be cancelled: its pickup
// time must be at least MinPickupLead away.
func (v *Validator) Cancelable(o *Order) error {
	cutoff := v.now().Add(MinPickupLead)
	if o.PickupTime.Before(cutoff) {
		return &DeletionNotPermittedError{Reason: "pickup time is less than 30 minutes away"}
	}
	return nil
}
