// Package handler exposes the order service over HTTP.
package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ovenline/pizzeria-orders/internal/domain/auth"
	"github.com/ovenline/pizzeria-orders/internal/domain/order"
)

// Handler implements the HTTP surface of the order service, delegating
// business logic to the order service.
type Handler struct {
	orders   *order.Service
	apikeys  auth.Repository
	pepper   []byte
	validate *validator.Validate
}

// NewHandler constructs a Handler with the required dependencies. pepper is
// the HMAC key used for API key hashing.
func NewHandler(orders *order.Service, apikeys auth.Repository, pepper []byte) *Handler {
	return &Handler{
		orders:   orders,
		apikeys:  apikeys,
		pepper:   pepper,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes mounts all API routes onto a chi router. Every route requires a
// valid API key.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.RequireAPIKey)

	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/all", h.listAllOrders)
	r.Put("/orders/{orderID}", h.editOrder)
	r.Delete("/orders/{orderID}", h.deleteOrder)
	r.Put("/coupons", h.upsertCoupon)

	return r
}
