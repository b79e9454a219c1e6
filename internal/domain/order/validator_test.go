package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID map[string]*Order

	getErr    error
	createErr error
	updateErr error
	deleteErr error

	created []*Order
	updated []*Order
	deleted []string
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, o)
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

type mockDirectory struct {
	stores    map[string]string // id -> contact email
	existsErr error
	emailErr  error
}

func (m *mockDirectory) Exists(_ context.Context, storeID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.stores[storeID]
	return ok, nil
}

func (m *mockDirectory) ContactEmail(_ context.Context, storeID string) (string, error) {
	if m.emailErr != nil {
		return "", m.emailErr
	}
	return m.stores[storeID], nil
}

// --- Helpers ---

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func fixedClockValidator(orders Repository, stores *mockDirectory) *Validator {
	v := NewValidator(orders, stores)
	v.now = func() time.Time { return testNow }
	return v
}

func validOrder() *Order {
	return &Order{
		Foods:      []FoodLine{{RecipeID: "margherita"}},
		StoreID:    "store-1",
		UserID:     "user-1",
		PickupTime: testNow.Add(time.Hour),
		CouponIDs:  []string{},
	}
}

// --- Tests ---

func TestValidator_Presence(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(o *Order)
		wantField string
	}{
		{
			name:      "empty foods",
			mutate:    func(o *Order) { o.Foods = nil },
			wantField: "foods",
		},
		{
			name:      "missing user",
			mutate:    func(o *Order) { o.UserID = "" },
			wantField: "userId",
		},
		{
			name:      "zero pickup time",
			mutate:    func(o *Order) { o.PickupTime = time.Time{} },
			wantField: "pickupTime",
		},
		{
			name:      "nil coupon list",
			mutate:    func(o *Order) { o.CouponIDs = nil },
			wantField: "couponIds",
		},
	}

	dir := &mockDirectory{stores: map[string]string{"store-1": "store@example.com"}}
	v := fixedClockValidator(&mockOrderRepo{}, dir)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			tt.mutate(o)

			err := v.Validate(context.Background(), o, o.UserID)
			var malformed *MalformedOrderError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.wantField, malformed.Field)
		})
	}
}

func TestValidator_NilOrder(t *testing.T) {
	v := fixedClockValidator(&mockOrderRepo{}, &mockDirectory{})

	err := v.Validate(context.Background(), nil, "user-1")
	var malformed *MalformedOrderError
	require.ErrorAs(t, err, &malformed)
}

func TestValidator_RequesterMustBeOwner(t *testing.T) {
	dir := &mockDirectory{stores: map[string]string{"store-1": ""}}
	v := fixedClockValidator(&mockOrderRepo{}, dir)

	err := v.Validate(context.Background(), validOrder(), "someone-else")
	var mismatch *OwnershipMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestValidator_EditChecksOwnerOnFile(t *testing.T) {
	persisted := validOrder()
	persisted.ID = "order-1"
	persisted.UserID = "original-owner"

	repo := &mockOrderRepo{byID: map[string]*Order{"order-1": persisted}}
	dir := &mockDirectory{stores: map[string]string{"store-1": ""}}
	v := fixedClockValidator(repo, dir)

	edited := validOrder()
	edited.ID = "order-1"
	edited.UserID = "user-1"

	err := v.Validate(context.Background(), edited, "user-1")
	var mismatch *OwnershipMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "order-1", mismatch.OrderID)
}

func TestValidator_EditUnknownOrder(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{}}
	dir := &mockDirectory{stores: map[string]string{"store-1": ""}}
	v := fixedClockValidator(repo, dir)

	o := validOrder()
	o.ID = "missing"

	err := v.Validate(context.Background(), o, o.UserID)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestValidator_UnknownStore(t *testing.T) {
	v := fixedClockValidator(&mockOrderRepo{}, &mockDirectory{stores: map[string]string{}})

	o := validOrder()
	o.StoreID = "store-77"

	err := v.Validate(context.Background(), o, o.UserID)
	var unknown *UnknownStoreError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "store-77", unknown.StoreID)
}

func TestValidator_PickupLead(t *testing.T) {
	tests := []struct {
		name    string
		pickup  time.Time
		wantErr bool
	}{
		{name: "twenty minutes away", pickup: testNow.Add(20 * time.Minute), wantErr: true},
		{name: "just under the lead", pickup: testNow.Add(MinPickupLead - time.Second), wantErr: true},
		{name: "exactly the lead", pickup: testNow.Add(MinPickupLead)},
		{name: "an hour away", pickup: testNow.Add(time.Hour)},
	}

	dir := &mockDirectory{stores: map[string]string{"store-1": ""}}
	v := fixedClockValidator(&mockOrderRepo{}, dir)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			o.PickupTime = tt.pickup

			err := v.Validate(context.Background(), o, o.UserID)
			if tt.wantErr {
				var tooSoon *PickupTimeTooSoonError
				require.ErrorAs(t, err, &tooSoon)
				assert.Equal(t, tt.pickup, tooSoon.PickupTime)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidator_Cancelable(t *testing.T) {
	v := fixedClockValidator(&mockOrderRepo{}, &mockDirectory{})

	soon := validOrder()
	soon.PickupTime = testNow.Add(10 * time.Minute)
	var denied *DeletionNotPermittedError
	require.ErrorAs(t, v.Cancelable(soon), &denied)

	later := validOrder()
	later.PickupTime = testNow.Add(time.Hour)
	require.NoError(t, v.Cancelable(later))

	boundary := validOrder()
	boundary.PickupTime = testNow.Add(MinPickupLead)
	require.NoError(t, v.Cancelable(boundary))
}
