package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovenline/pizzeria-orders/internal/catalog"
	"github.com/ovenline/pizzeria-orders/internal/directory"
	"github.com/ovenline/pizzeria-orders/internal/domain/coupon"
	"github.com/ovenline/pizzeria-orders/internal/notify"
)

// priceTolerance is the absolute tolerance used when reconciling the
// client-submitted total against the server-derived total.
var priceTolerance = decimal.New(1, -6)

// Service orchestrates order placement, editing, deletion, and listing:
// validation, price reconciliation against the catalog, coupon selection,
// persistence, and best-effort notification.
type Service struct {
	orders    Repository
	validator *Validator
	catalog   catalog.Gateway
	coupons   coupon.Store
	stores    directory.StoreDirectory
	notifier  notify.Notifier
	tele      *Telemetry
}

// NewService creates an order Service with the required collaborators.
func NewService(
	orders Repository,
	validator *Validator,
	gateway catalog.Gateway,
	coupons coupon.Store,
	stores directory.StoreDirectory,
	notifier notify.Notifier,
) *Service {
	return &Service{
		orders:    orders,
		validator: validator,
		catalog:   gateway,
		coupons:   coupons,
		stores:    stores,
		notifier:  notifier,
		tele:      defaultTelemetry(),
	}
}

// WithTelemetry replaces the no-op instruments with ones backed by real
// providers. It returns the service for call chaining during wiring.
func (s *Service) WithTelemetry(t *Telemetry) *Service {
	s.tele = t
	return s
}

// PlaceOrder processes a new order and persists it on success.
func (s *Service) PlaceOrder(ctx context.Context, o *Order, requestingUserID string) (*Order, error) {
	if o != nil && o.ID != "" {
		return nil, &MalformedOrderError{Field: "orderId must be empty for a new order"}
	}

	ctx, span := s.tele.tracer.Start(ctx, "Service.PlaceOrder")
	defer span.End()

	return s.process(ctx, o, requestingUserID, notify.KindCreated)
}

// EditOrder re-processes an existing order in full: the edited order goes
// through the same validation and price reconciliation as a new one.
func (s *Service) EditOrder(ctx context.Context, o *Order, requestingUserID string) (*Order, error) {
	if o == nil || o.ID == "" {
		return nil, &MalformedOrderError{Field: "orderId"}
	}

	ctx, span := s.tele.tracer.Start(ctx, "Service.EditOrder")
	defer span.End()

	return s.process(ctx, o, requestingUserID, notify.KindEdited)
}

func (s *Service) process(ctx context.Context, o *Order, requestingUserID string, kind notify.Kind) (*Order, error) {
	if err := s.validator.Validate(ctx, o, requestingUserID); err != nil {
		s.tele.reject(ctx, "validation")
		return nil, err
	}

	recipeIDs, ingredientIDs := ReferencedIDs(o.Foods)
	quote, err := s.catalog.FetchPrices(ctx, recipeIDs, ingredientIDs)
	if err != nil {
		// Business "no data" and transport failure both reject the order,
		// but only the latter is worth retrying, so log them apart.
		transport := !errors.Is(err, catalog.ErrUnpriceable)
		zctx.From(ctx).Warn("Catalog price fetch failed",
			zap.Bool("transport", transport),
			zap.Error(err),
		)
		s.tele.reject(ctx, "catalog")
		return nil, &UnpriceableOrderError{Transport: transport, cause: err}
	}

	matched, err := s.coupons.FindByIDs(ctx, o.CouponIDs)
	if err != nil {
		return nil, errors.Wrap(err, "match coupons")
	}

	result, err := PriceOrder(o.Foods, quote, matched)
	if err != nil {
		return nil, errors.Wrap(err, "price order")
	}

	if result.Total.Sub(o.Price).Abs().GreaterThan(priceTolerance) {
		s.tele.reject(ctx, "price_mismatch")
		return nil, &PriceMismatchError{Submitted: o.Price, Computed: result.Total}
	}

	// The persisted order keeps only the coupon that won, never the full
	// candidate list and never a placeholder.
	o.Price = result.Total
	if result.CouponID != "" {
		o.CouponIDs = []string{result.CouponID}
	} else {
		o.CouponIDs = []string{}
	}

	if o.ID == "" {
		o.ID = uuid.New().String()
		if err := s.orders.Create(ctx, o); err != nil {
			return nil, errors.Wrap(err, "create order")
		}
	} else {
		if err := s.orders.Update(ctx, o); err != nil {
			if errors.Is(err, ErrEditConflict) || errors.Is(err, ErrOrderNotFound) {
				return nil, err
			}
			return nil, errors.Wrap(err, "update order")
		}
	}

	s.tele.accepted.Add(ctx, 1)
	s.notifyStore(ctx, o, kind)
	return o, nil
}

// DeleteOrder cancels an order. The requester must be the owner or hold the
// manager role, and the pickup cutoff must not have passed.
func (s *Service) DeleteOrder(ctx context.Context, orderID, requestingUserID string, isManager bool) error {
	ctx, span := s.tele.tracer.Start(ctx, "Service.DeleteOrder")
	defer span.End()

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return errors.Wrap(err, "load order")
	}

	if o.UserID != requestingUserID && !isManager {
		return &DeletionNotPermittedError{Reason: "only the owner or a manager may cancel an order"}
	}
	if err := s.validator.Cancelable(o); err != nil {
		return err
	}

	if err := s.orders.Delete(ctx, orderID); err != nil {
		return errors.Wrap(err, "delete order")
	}

	s.tele.canceled.Add(ctx, 1)
	s.notifyStore(ctx, o, notify.KindDeleted)
	return nil
}

// ListOrders returns all orders owned by the given user.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAllOrders returns every order in the system. Callers must restrict
// this to managers.
func (s *Service) ListAllOrders(ctx context.Context) ([]Order, error) {
	return s.orders.ListAll(ctx)
}

// UpsertCoupon validates and idempotently stores a coupon definition.
func (s *Service) UpsertCoupon(ctx context.Context, def coupon.Definition) error {
	if _, err := def.Build(); err != nil {
		return err
	}
	return s.coupons.Upsert(ctx, def)
}

// notifyStore dispatches a lifecycle notification to the order's store.
// Failures are logged and swallowed: the order is already committed.
func (s *Service) notifyStore(ctx context.Context, o *Order, kind notify.Kind) {
	lg := zctx.From(ctx).With(
		zap.String("order_id", o.ID),
		zap.String("kind", string(kind)),
	)

	email, err := s.stores.ContactEmail(ctx, o.StoreID)
	if err != nil {
		lg.Warn("Store contact lookup failed", zap.Error(err))
		return
	}
	if email == "" {
		lg.Debug("Store has no contact email, skipping notification")
		return
	}

	if err := s.notifier.Notify(ctx, notify.Notification{
		OrderID:   o.ID,
		Recipient: email,
		Kind:      kind,
	}); err != nil {
		lg.Warn("Notification delivery failed", zap.Error(err))
	}
}
