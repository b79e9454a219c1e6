package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ovenline/pizzeria-orders/internal/domain/coupon"
)

// couponRequest is the administrative upsert payload. Percentage is a
// fraction in [0, 1] and only meaningful for kind "percentage".
type couponRequest struct {
	ID         string  `json:"id" validate:"required"`
	Kind       string  `json:"kind" validate:"required,oneof=percentage two_for_one"`
	Percentage float64 `json:"percentage" validate:"min=0,max=1"`
}

func (h *Handler) upsertCoupon(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !identity.Manager {
		writeErrorResponse(w, http.StatusForbidden, "manager role required")
		return
	}

	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	def := coupon.Definition{
		ID:         req.ID,
		Kind:       coupon.Kind(req.Kind),
		Percentage: decimal.NewFromFloat(req.Percentage),
	}
	if err := h.orders.UpsertCoupon(r.Context(), def); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
