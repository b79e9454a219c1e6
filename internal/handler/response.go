package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovenline/pizzeria-orders/internal/domain/coupon"
	"github.com/ovenline/pizzeria-orders/internal/domain/order"
)

// errorResponse is the JSON error body returned for all failures.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeDomainError maps the order error taxonomy to HTTP status codes. Each
// rejection carries the specific error kind's human-readable reason; none of
// these are retried by the server.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		malformed   *order.MalformedOrderError
		ownership   *order.OwnershipMismatchError
		unknownSt   *order.UnknownStoreError
		tooSoon     *order.PickupTimeTooSoonError
		unpriceable *order.UnpriceableOrderError
		mismatch    *order.PriceMismatchError
		deletion    *order.DeletionNotPermittedError
		invalidDef  *coupon.InvalidDefinitionError
		valErrs     validator.ValidationErrors
	)

	switch {
	case errors.As(err, &malformed), errors.As(err, &valErrs):
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &ownership), errors.As(err, &deletion):
		writeErrorResponse(w, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrOrderNotFound), errors.As(err, &unknownSt):
		writeErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrEditConflict):
		writeErrorResponse(w, http.StatusConflict, err.Error())
	case errors.As(err, &tooSoon),
		errors.As(err, &unpriceable),
		errors.As(err, &mismatch),
		errors.As(err, &invalidDef):
		writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(r.Context()).Error("Unhandled order error", zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "internal server error")
	}
}
