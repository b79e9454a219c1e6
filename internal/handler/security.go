package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// Identity is the authenticated caller of a request: the user an API key
// belongs to and whether that key carries the manager scope.
type Identity struct {
	UserID  string
	Manager bool
}

// identityKey is the context key for the authenticated Identity.
type identityKey struct{}

// IdentityFromContext extracts the authenticated Identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// HashAPIKey computes the HMAC-SHA256 hash of an API key under the given
// pepper, hex encoded. The same derivation is used when seeding keys.
func HashAPIKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequireAPIKey authenticates the request via the api_key header: the key is
// hashed, looked up, and compared in constant time. On success the caller's
// Identity is stored in the request context.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			writeErrorResponse(w, http.StatusUnauthorized, "api key required")
			return
		}

		hash := HashAPIKey(key, h.pepper)
		info, err := h.apikeys.FindByHash(r.Context(), hash)
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		computed, _ := hex.DecodeString(hash)
		if subtle.ConstantTimeCompare(computed, stored) != 1 {
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		identity := Identity{UserID: info.UserID, Manager: info.IsManager()}
		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
