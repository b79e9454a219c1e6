package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ovenline/pizzeria-orders/internal/domain/coupon"
)

const (
	getPercentageCouponsSQL = `SELECT id, percentage FROM percentage_coupons WHERE id = ANY($1)`
	getTwoForOneCouponsSQL  = `SELECT id FROM two_for_one_coupons WHERE id = ANY($1)`

	upsertPercentageCouponSQL = `INSERT INTO percentage_coupons (id, percentage)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET percentage = EXCLUDED.percentage, updated_at = now()`

	upsertTwoForOneCouponSQL = `INSERT INTO two_for_one_coupons (id)
		VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET updated_at = now()`

	allCouponIDsSQL = `SELECT id FROM percentage_coupons UNION SELECT id FROM two_for_one_coupons`
)

var _ coupon.Store = (*CouponStore)(nil)

// CouponStore implements coupon.Store backed by PostgreSQL, with the two
// coupon kinds held in separate tables.
type CouponStore struct {
	pool *pgxpool.Pool
}

// NewCouponStore returns a CouponStore that uses the given pool.
func NewCouponStore(pool *pgxpool.Pool) *CouponStore {
	return &CouponStore{pool: pool}
}

// FindByIDs looks the given IDs up in both coupon tables. IDs found in
// neither are silently omitted; the result preserves the order of ids.
func (r *CouponStore) FindByIDs(ctx context.Context, ids []string) ([]coupon.Coupon, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found := make(map[string]coupon.Coupon, len(ids))

	rows, err := r.pool.Query(ctx, getPercentageCouponsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("finding percentage coupons: %w", err)
	}
	err = forEachRow(rows, func(row pgx.CollectableRow) error {
		var (
			id       string
			fraction decimal.Decimal
		)
		if err := row.Scan(&id, &fraction); err != nil {
			return err
		}
		c, err := coupon.NewPercentage(id, fraction)
		if err != nil {
			return err
		}
		found[id] = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finding percentage coupons: %w", err)
	}

	rows, err = r.pool.Query(ctx, getTwoForOneCouponsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("finding two-for-one coupons: %w", err)
	}
	err = forEachRow(rows, func(row pgx.CollectableRow) error {
		var id string
		if err := row.Scan(&id); err != nil {
			return err
		}
		found[id] = coupon.TwoForOne{Code: id}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finding two-for-one coupons: %w", err)
	}

	matched := make([]coupon.Coupon, 0, len(found))
	for _, id := range ids {
		if c, ok := found[id]; ok {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// Upsert idempotently stores the definition in the table for its kind.
func (r *CouponStore) Upsert(ctx context.Context, def coupon.Definition) error {
	if _, err := def.Build(); err != nil {
		return err
	}

	switch def.Kind {
	case coupon.KindPercentage:
		_, err := r.pool.Exec(ctx, upsertPercentageCouponSQL, def.ID, def.Percentage)
		if err != nil {
			return fmt.Errorf("upserting percentage coupon %q: %w", def.ID, err)
		}
	case coupon.KindTwoForOne:
		_, err := r.pool.Exec(ctx, upsertTwoForOneCouponSQL, def.ID)
		if err != nil {
			return fmt.Errorf("upserting two-for-one coupon %q: %w", def.ID, err)
		}
	}
	return nil
}

// AllIDs returns every coupon ID across both tables.
func (r *CouponStore) AllIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, allCouponIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing coupon ids: %w", err)
	}
	return ids, nil
}

// forEachRow drains rows, invoking fn per row, and returns the first error.
func forEachRow(rows pgx.Rows, fn func(pgx.CollectableRow) error) error {
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
