package coupon

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const cacheFPR = 0.001

// CachedStore wraps a Store with a bloom filter of known coupon IDs so that
// lookups for IDs that were never defined skip the database entirely. A
// false positive only costs one harmless database miss; a coupon ID absent
// from the filter is guaranteed absent from the store, which is safe because
// unknown coupon IDs are silently ignored by order processing anyway.
type CachedStore struct {
	store Store

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCachedStore builds the filter from the IDs currently in the store.
// capacity is the expected number of coupon definitions; it is sized up to
// the current count when that is larger.
func NewCachedStore(ctx context.Context, store Store, capacity uint) (*CachedStore, error) {
	ids, err := store.AllIDs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "warm coupon cache")
	}
	if uint(len(ids)) > capacity {
		capacity = uint(len(ids))
	}

	filter := bloom.NewWithEstimates(capacity, cacheFPR)
	for _, id := range ids {
		filter.AddString(id)
	}

	return &CachedStore{store: store, filter: filter}, nil
}

// FindByIDs filters the requested IDs through the bloom filter and only
// queries the underlying store for possible hits.
func (c *CachedStore) FindByIDs(ctx context.Context, ids []string) ([]Coupon, error) {
	candidates := ids[:0:0]
	c.mu.RLock()
	for _, id := range ids {
		if c.filter.TestString(id) {
			candidates = append(candidates, id)
		}
	}
	c.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, nil
	}
	return c.store.FindByIDs(ctx, candidates)
}

// Upsert writes through to the store and records the ID in the filter.
func (c *CachedStore) Upsert(ctx context.Context, def Definition) error {
	if err := c.store.Upsert(ctx, def); err != nil {
		return err
	}
	c.mu.Lock()
	c.filter.AddString(def.ID)
	c.mu.Unlock()
	return nil
}

// AllIDs delegates to the underlying store.
func (c *CachedStore) AllIDs(ctx context.Context) ([]string, error) {
	return c.store.AllIDs(ctx)
}
