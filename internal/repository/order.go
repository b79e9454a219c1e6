package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ovenline/pizzeria-orders/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, store_id, pickup_time, price, coupon_ids, foods, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)`

	getOrderSQL = `SELECT id, user_id, store_id, pickup_time, price, coupon_ids, foods, version, created_at, updated_at
		FROM orders WHERE id = $1`

	// Optimistic concurrency: the update only lands when the stored version
	// still matches the one the caller read.
	updateOrderSQL = `UPDATE orders
		SET user_id = $2, store_id = $3, pickup_time = $4, price = $5, coupon_ids = $6, foods = $7,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $8`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT id, user_id, store_id, pickup_time, price, coupon_ids, foods, version, created_at, updated_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	listAllOrdersSQL = `SELECT id, user_id, store_id, pickup_time, price, coupon_ids, foods, version, created_at, updated_at
		FROM orders ORDER BY created_at DESC`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Food
// lines and coupon IDs are serialized to JSON for storage in JSONB columns.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// foodLineJSON is the JSONB shape of a single food line.
type foodLineJSON struct {
	RecipeID         string   `json:"recipeId"`
	BaseIngredients  []string `json:"baseIngredients"`
	ExtraIngredients []string `json:"extraIngredients"`
}

func marshalFoods(foods []order.FoodLine) ([]byte, error) {
	lines := make([]foodLineJSON, len(foods))
	for i, f := range foods {
		lines[i] = foodLineJSON(f)
	}
	return json.Marshal(lines)
}

// Create persists a new order with version 1.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	foodsJSON, err := marshalFoods(o.Foods)
	if err != nil {
		return fmt.Errorf("marshaling order foods: %w", err)
	}
	couponsJSON, err := json.Marshal(o.CouponIDs)
	if err != nil {
		return fmt.Errorf("marshaling coupon ids: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.StoreID, o.PickupTime, o.Price, couponsJSON, foodsJSON,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	o.Version = 1
	return nil
}

// Get loads an order by ID. Returns order.ErrOrderNotFound for unknown IDs.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("loading order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("loading order %q: %w", id, err)
	}
	return &o, nil
}

// Update replaces the order's fields in place, guarded by its version.
// Returns order.ErrEditConflict when the version no longer matches and
// order.ErrOrderNotFound when the row is gone entirely.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	foodsJSON, err := marshalFoods(o.Foods)
	if err != nil {
		return fmt.Errorf("marshaling order foods: %w", err)
	}
	couponsJSON, err := json.Marshal(o.CouponIDs)
	if err != nil {
		return fmt.Errorf("marshaling coupon ids: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.UserID, o.StoreID, o.PickupTime, o.Price, couponsJSON, foodsJSON, o.Version,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking order %q: %w", o.ID, err)
		}
		if !exists {
			return order.ErrOrderNotFound
		}
		return order.ErrEditConflict
	}
	o.Version++
	return nil
}

// Delete removes an order. Returns order.ErrOrderNotFound for unknown IDs.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// ListByUser returns all orders owned by the given user, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return orders, nil
}

// ListAll returns every order in the system, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing all orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing all orders: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		price       decimal.Decimal
		couponsJSON []byte
		foodsJSON   []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.StoreID, &o.PickupTime, &price,
		&couponsJSON, &foodsJSON, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	o.Price = price

	if err := json.Unmarshal(couponsJSON, &o.CouponIDs); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling coupon ids: %w", err)
	}
	var lines []foodLineJSON
	if err := json.Unmarshal(foodsJSON, &lines); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order foods: %w", err)
	}
	o.Foods = make([]order.FoodLine, len(lines))
	for i, l := range lines {
		o.Foods[i] = order.FoodLine(l)
	}
	return o, nil
}
