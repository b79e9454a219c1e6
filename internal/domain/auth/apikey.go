package auth

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
)

// ScopeManager grants manager-level operations: listing all orders,
// cancelling any order, administering coupons.
const ScopeManager = "manager"

// ErrKeyNotFound is returned when no active API key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	KeyHash string
	UserID  string
	Name    string
	Scopes  []string
}

// IsManager reports whether the key carries the manager scope.
func (i *APIKeyInfo) IsManager() bool {
	return slices.Contains(i.Scopes, ScopeManager)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
