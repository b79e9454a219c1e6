// Package directory is a narrow client for the external store directory
// service: store existence checks and contact lookup, nothing else.
package directory

import "context"

// StoreDirectory answers whether a store exists and how to reach it.
type StoreDirectory interface {
	Exists(ctx context.Context, storeID string) (bool, error)
	ContactEmail(ctx context.Context, storeID string) (string, error)
}
