// Package notify dispatches order lifecycle notifications to the external
// notification service. Delivery is best-effort: the order service logs
// failures and never fails an order operation over them.
package notify

import "context"

// Kind is the order lifecycle event being announced.
type Kind string

const (
	KindCreated Kind = "created"
	KindEdited  Kind = "edited"
	KindDeleted Kind = "deleted"
)

// Notification describes one order event for a single recipient.
type Notification struct {
	OrderID   string
	Recipient string
	Kind      Kind
}

// Notifier delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Nop is a Notifier that does nothing. Useful in tests and local setups
// without a notification service.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }
