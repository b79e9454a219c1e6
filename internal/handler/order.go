package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ovenline/pizzeria-orders/internal/domain/order"
)

// foodLineRequest mirrors order.FoodLine on the wire.
type foodLineRequest struct {
	RecipeID         string   `json:"recipeId" validate:"required"`
	BaseIngredients  []string `json:"baseIngredients"`
	ExtraIngredients []string `json:"extraIngredients"`
}

// orderRequest is the client-submitted order. Price and couponIds are
// untrusted input; the service re-derives both. UserID defaults to the
// authenticated caller when omitted.
type orderRequest struct {
	Foods      []foodLineRequest `json:"foods" validate:"required,min=1,dive"`
	StoreID    string            `json:"storeId" validate:"required"`
	UserID     string            `json:"userId"`
	PickupTime time.Time         `json:"pickupTime"`
	Price      float64           `json:"price" validate:"min=0"`
	CouponIDs  []string          `json:"couponIds"`
	Version    int64             `json:"version" validate:"min=0"`
}

func (req *orderRequest) toDomain(id string, identity Identity) *order.Order {
	userID := req.UserID
	if userID == "" {
		userID = identity.UserID
	}

	foods := make([]order.FoodLine, len(req.Foods))
	for i, f := range req.Foods {
		foods[i] = order.FoodLine(f)
	}

	return &order.Order{
		ID:         id,
		Foods:      foods,
		StoreID:    req.StoreID,
		UserID:     userID,
		PickupTime: req.PickupTime,
		Price:      decimal.NewFromFloat(req.Price),
		CouponIDs:  req.CouponIDs,
		Version:    req.Version,
	}
}

type foodLineResponse struct {
	RecipeID         string   `json:"recipeId"`
	BaseIngredients  []string `json:"baseIngredients"`
	ExtraIngredients []string `json:"extraIngredients"`
}

type orderResponse struct {
	ID         string             `json:"id"`
	Foods      []foodLineResponse `json:"foods"`
	StoreID    string             `json:"storeId"`
	UserID     string             `json:"userId"`
	PickupTime time.Time          `json:"pickupTime"`
	Price      float64            `json:"price"`
	CouponIDs  []string           `json:"couponIds"`
	Version    int64              `json:"version"`
}

func toOrderResponse(o *order.Order) orderResponse {
	foods := make([]foodLineResponse, len(o.Foods))
	for i, f := range o.Foods {
		foods[i] = foodLineResponse(f)
	}
	couponIDs := o.CouponIDs
	if couponIDs == nil {
		couponIDs = []string{}
	}
	return orderResponse{
		ID:         o.ID,
		Foods:      foods,
		StoreID:    o.StoreID,
		UserID:     o.UserID,
		PickupTime: o.PickupTime,
		Price:      o.Price.InexactFloat64(),
		CouponIDs:  couponIDs,
		Version:    o.Version,
	}
}

func (h *Handler) decodeOrder(w http.ResponseWriter, r *http.Request, id string) (*order.Order, bool) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := h.validate.Struct(&req); err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}

	return req.toDomain(id, identity), true
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	o, ok := h.decodeOrder(w, r, "")
	if !ok {
		return
	}

	placed, err := h.orders.PlaceOrder(r.Context(), o, identity.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(placed))
}

func (h *Handler) editOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	o, ok := h.decodeOrder(w, r, chi.URLParam(r, "orderID"))
	if !ok {
		return
	}

	edited, err := h.orders.EditOrder(r.Context(), o, identity.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(edited))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	err := h.orders.DeleteOrder(r.Context(), chi.URLParam(r, "orderID"), identity.UserID, identity.Manager)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOrderList(w, orders)
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !identity.Manager {
		writeErrorResponse(w, http.StatusForbidden, "manager role required")
		return
	}

	orders, err := h.orders.ListAllOrders(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOrderList(w, orders)
}

func writeOrderList(w http.ResponseWriter, orders []order.Order) {
	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, resp)
}
