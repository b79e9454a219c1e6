package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovenline/pizzeria-orders/internal/catalog"
	"github.com/ovenline/pizzeria-orders/internal/domain/coupon"
	"github.com/ovenline/pizzeria-orders/internal/notify"
)

// --- Mock implementations ---

type mockGateway struct {
	quote *catalog.Quote
	err   error

	calls int
}

func (m *mockGateway) FetchPrices(_ context.Context, _, _ []string) (*catalog.Quote, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

type mockCouponStore struct {
	coupons map[string]coupon.Coupon
	findErr error

	upserted []coupon.Definition
}

func (m *mockCouponStore) FindByIDs(_ context.Context, ids []string) ([]coupon.Coupon, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []coupon.Coupon
	for _, id := range ids {
		if c, ok := m.coupons[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCouponStore) Upsert(_ context.Context, def coupon.Definition) error {
	m.upserted = append(m.upserted, def)
	return nil
}

func (m *mockCouponStore) AllIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.coupons))
	for id := range m.coupons {
		ids = append(ids, id)
	}
	return ids, nil
}

type mockNotifier struct {
	err  error
	sent []notify.Notification
}

func (m *mockNotifier) Notify(_ context.Context, n notify.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

// --- Helpers ---

type serviceFixture struct {
	repo     *mockOrderRepo
	gateway  *mockGateway
	coupons  *mockCouponStore
	dir      *mockDirectory
	notifier *mockNotifier
	svc      *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	p20, err := coupon.NewPercentage("P20", d("0.2"))
	require.NoError(t, err)

	f := &serviceFixture{
		repo: &mockOrderRepo{byID: map[string]*Order{}},
		gateway: &mockGateway{
			quote: quoteOf(
				map[string]string{"margherita": "12"},
				map[string]string{"olives": "3", "mozzarella": "0"},
			),
		},
		coupons: &mockCouponStore{coupons: map[string]coupon.Coupon{
			"P20":  p20,
			"B2G1": coupon.TwoForOne{Code: "B2G1"},
		}},
		dir:      &mockDirectory{stores: map[string]string{"store-1": "store@example.com"}},
		notifier: &mockNotifier{},
	}
	f.svc = NewService(f.repo, fixedClockValidator(f.repo, f.dir), f.gateway, f.coupons, f.dir, f.notifier)
	return f
}

func submittedOrder(price string, couponIDs ...string) *Order {
	if couponIDs == nil {
		couponIDs = []string{}
	}
	return &Order{
		Foods: []FoodLine{{
			RecipeID:         "margherita",
			BaseIngredients:  []string{"mozzarella"},
			ExtraIngredients: []string{"olives"},
		}},
		StoreID:    "store-1",
		UserID:     "user-1",
		PickupTime: testNow.Add(time.Hour),
		Price:      d(price),
		CouponIDs:  couponIDs,
	}
}

// --- Tests ---

func TestService_PlaceOrder(t *testing.T) {
	f := newServiceFixture(t)

	placed, err := f.svc.PlaceOrder(context.Background(), submittedOrder("15"), "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, placed.ID)
	assert.True(t, placed.Price.Equal(d("15")))
	assert.Equal(t, []string{}, placed.CouponIDs)

	require.Len(t, f.repo.created, 1)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notify.KindCreated, f.notifier.sent[0].Kind)
	assert.Equal(t, "store@example.com", f.notifier.sent[0].Recipient)
}

func TestService_PlaceOrderWithCoupon(t *testing.T) {
	f := newServiceFixture(t)

	// 15 base, P20 brings it to 12; the submitted price must match the
	// discounted total.
	placed, err := f.svc.PlaceOrder(context.Background(), submittedOrder("12", "P20"), "user-1")
	require.NoError(t, err)
	assert.True(t, placed.Price.Equal(d("12")))
	assert.Equal(t, []string{"P20"}, placed.CouponIDs)
}

func TestService_PlaceOrderKeepsOnlyWinningCoupon(t *testing.T) {
	f := newServiceFixture(t)

	// Both coupons submitted; only P20 reduces a single-line order, so only
	// it is persisted.
	placed, err := f.svc.PlaceOrder(context.Background(), submittedOrder("12", "B2G1", "P20"), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"P20"}, placed.CouponIDs)
}

func TestService_PlaceOrderIgnoresUnknownCoupons(t *testing.T) {
	f := newServiceFixture(t)

	placed, err := f.svc.PlaceOrder(context.Background(), submittedOrder("15", "DOESNOTEXIST"), "user-1")
	require.NoError(t, err)
	assert.True(t, placed.Price.Equal(d("15")))
	assert.Equal(t, []string{}, placed.CouponIDs)
}

func TestService_PlaceOrderPriceMismatch(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), submittedOrder("14.50"), "user-1")
	var mismatch *PriceMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, mismatch.Computed.Equal(d("15")))
	assert.Empty(t, f.repo.created, "rejected order must not be persisted")
	assert.Empty(t, f.notifier.sent)
}

func TestService_PriceTolerance(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		accepted bool
	}{
		{name: "exact", price: "15", accepted: true},
		{name: "within tolerance above", price: "15.000001", accepted: true},
		{name: "within tolerance below", price: "14.999999", accepted: true},
		{name: "beyond tolerance above", price: "15.000002", accepted: false},
		{name: "beyond tolerance below", price: "14.999998", accepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)

			placed, err := f.svc.PlaceOrder(context.Background(), submittedOrder(tt.price), "user-1")
			if !tt.accepted {
				var mismatch *PriceMismatchError
				require.ErrorAs(t, err, &mismatch)
				return
			}
			require.NoError(t, err)
			// The persisted price is the computed one, not the submitted one.
			assert.True(t, placed.Price.Equal(d("15")))
		})
	}
}

func TestService_PlaceOrderRejectsPresetID(t *testing.T) {
	f := newServiceFixture(t)

	o := submittedOrder("15")
	o.ID = "client-chosen"

	_, err := f.svc.PlaceOrder(context.Background(), o, "user-1")
	var malformed *MalformedOrderError
	require.ErrorAs(t, err, &malformed)
}

func TestService_PlaceOrderPickupTooSoon(t *testing.T) {
	f := newServiceFixture(t)

	o := submittedOrder("15")
	o.PickupTime = testNow.Add(20 * time.Minute)

	_, err := f.svc.PlaceOrder(context.Background(), o, "user-1")
	var tooSoon *PickupTimeTooSoonError
	require.ErrorAs(t, err, &tooSoon)
	assert.Empty(t, f.repo.created)
	assert.Zero(t, f.gateway.calls, "validation failures must not reach the catalog")
}

func TestService_EditOrderNotOwner(t *testing.T) {
	f := newServiceFixture(t)

	persisted := submittedOrder("15")
	persisted.ID = "order-1"
	persisted.UserID = "original-owner"
	f.repo.byID["order-1"] = persisted

	edited := submittedOrder("15")
	edited.ID = "order-1"
	edited.UserID = "intruder"

	_, err := f.svc.EditOrder(context.Background(), edited, "intruder")
	var mismatch *OwnershipMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Zero(t, f.gateway.calls, "ownership failures must not reach the catalog")
	assert.Empty(t, f.repo.updated)
}

func TestService_EditOrder(t *testing.T) {
	f := newServiceFixture(t)

	persisted := submittedOrder("15")
	persisted.ID = "order-1"
	persisted.Version = 3
	f.repo.byID["order-1"] = persisted

	edited := submittedOrder("12", "P20")
	edited.ID = "order-1"
	edited.Version = 3

	updated, err := f.svc.EditOrder(context.Background(), edited, "user-1")
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(d("12")))
	assert.Equal(t, []string{"P20"}, updated.CouponIDs)

	require.Len(t, f.repo.updated, 1)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notify.KindEdited, f.notifier.sent[0].Kind)
}

func TestService_EditOrderRequiresID(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.EditOrder(context.Background(), submittedOrder("15"), "user-1")
	var malformed *MalformedOrderError
	require.ErrorAs(t, err, &malformed)
}

func TestService_EditOrderConflict(t *testing.T) {
	f := newServiceFixture(t)

	persisted := submittedOrder("15")
	persisted.ID = "order-1"
	f.repo.byID["order-1"] = persisted
	f.repo.updateErr = ErrEditConflict

	edited := submittedOrder("15")
	edited.ID = "order-1"

	_, err := f.svc.EditOrder(context.Background(), edited, "user-1")
	require.ErrorIs(t, err, ErrEditConflict)
	assert.Empty(t, f.notifier.sent)
}

func TestService_CatalogFailure(t *testing.T) {
	tests := []struct {
		name          string
		gatewayErr    error
		wantTransport bool
	}{
		{
			name:          "remote cannot price",
			gatewayErr:    errors.Wrap(catalog.ErrUnpriceable, "catalog answered 404"),
			wantTransport: false,
		},
		{
			name:          "transport failure",
			gatewayErr:    errors.New("connection refused"),
			wantTransport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			f.gateway.err = tt.gatewayErr

			_, err := f.svc.PlaceOrder(context.Background(), submittedOrder("15"), "user-1")
			var unpriceable *UnpriceableOrderError
			require.ErrorAs(t, err, &unpriceable)
			assert.Equal(t, tt.wantTransport, unpriceable.Transport)
			assert.Empty(t, f.repo.created)
			assert.Empty(t, f.notifier.sent)
		})
	}
}

func TestService_NotificationFailureIsSwallowed(t *testing.T) {
	f := newServiceFixture(t)
	f.notifier.err = errors.New("smtp relay down")

	placed, err := f.svc.PlaceOrder(context.Background(), submittedOrder("15"), "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, placed.ID)
	require.Len(t, f.repo.created, 1)
}

func TestService_DeleteOrder(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		manager   bool
		pickup    time.Time
		wantErr   error
	}{
		{
			name:      "owner within window",
			requester: "user-1",
			pickup:    testNow.Add(time.Hour),
		},
		{
			name:      "manager within window",
			requester: "manager-9",
			manager:   true,
			pickup:    testNow.Add(time.Hour),
		},
		{
			name:      "stranger",
			requester: "someone-else",
			pickup:    testNow.Add(time.Hour),
			wantErr:   &DeletionNotPermittedError{},
		},
		{
			name:      "owner past cutoff",
			requester: "user-1",
			pickup:    testNow.Add(10 * time.Minute),
			wantErr:   &DeletionNotPermittedError{},
		},
		{
			name:      "manager past cutoff",
			requester: "manager-9",
			manager:   true,
			pickup:    testNow.Add(10 * time.Minute),
			wantErr:   &DeletionNotPermittedError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)

			persisted := submittedOrder("15")
			persisted.ID = "order-1"
			persisted.PickupTime = tt.pickup
			f.repo.byID["order-1"] = persisted

			err := f.svc.DeleteOrder(context.Background(), "order-1", tt.requester, tt.manager)
			if tt.wantErr != nil {
				var denied *DeletionNotPermittedError
				require.ErrorAs(t, err, &denied)
				assert.Empty(t, f.repo.deleted)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"order-1"}, f.repo.deleted)
			require.Len(t, f.notifier.sent, 1)
			assert.Equal(t, notify.KindDeleted, f.notifier.sent[0].Kind)
		})
	}
}

func TestService_DeleteUnknownOrder(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.DeleteOrder(context.Background(), "missing", "user-1", false)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestService_ListOrders(t *testing.T) {
	f := newServiceFixture(t)

	mine := submittedOrder("15")
	mine.ID = "order-1"
	theirs := submittedOrder("15")
	theirs.ID = "order-2"
	theirs.UserID = "user-2"
	f.repo.byID["order-1"] = mine
	f.repo.byID["order-2"] = theirs

	orders, err := f.svc.ListOrders(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order-1", orders[0].ID)

	all, err := f.svc.ListAllOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_UpsertCoupon(t *testing.T) {
	f := newServiceFixture(t)

	def := coupon.Definition{ID: "ESTATE15", Kind: coupon.KindPercentage, Percentage: d("0.15")}
	require.NoError(t, f.svc.UpsertCoupon(context.Background(), def))
	require.NoError(t, f.svc.UpsertCoupon(context.Background(), def))
	assert.Len(t, f.coupons.upserted, 2)

	bad := coupon.Definition{ID: "BAD", Kind: coupon.KindPercentage, Percentage: d("1.5")}
	err := f.svc.UpsertCoupon(context.Background(), bad)
	var defErr *coupon.InvalidDefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Len(t, f.coupons.upserted, 2, "invalid definitions must not reach the store")
}
