// Package catalog retrieves authoritative recipe and ingredient prices from
// the external catalog service. Order processing never trusts prices
// submitted by clients; everything is re-derived from quotes served here.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrUnpriceable is returned when the catalog service answered but could not
// price the requested IDs: a non-success status, or a quote missing one of
// the requested recipes or ingredients. Transport failures are returned as
// distinct wrapped errors so callers can log the two classes apart.
var ErrUnpriceable = errors.New("order is not priceable")

// PricedItem is a single catalog entry: its current price and display name.
type PricedItem struct {
	Price decimal.Decimal
	Name  string
}

// Quote holds authoritative prices for exactly the recipe and ingredient IDs
// that were requested. A Quote returned without error is complete: every
// requested ID has an entry.
type Quote struct {
	Recipes     map[string]PricedItem
	Ingredients map[string]PricedItem
}

// Recipe returns the priced entry for a recipe ID.
func (q *Quote) Recipe(id string) (PricedItem, bool) {
	it, ok := q.Recipes[id]
	return it, ok
}

// Ingredient returns the priced entry for an ingredient ID.
func (q *Quote) Ingredient(id string) (PricedItem, bool) {
	it, ok := q.Ingredients[id]
	return it, ok
}

// Gateway fetches current prices for a set of recipe and ingredient IDs.
type Gateway interface {
	FetchPrices(ctx context.Context, recipeIDs, ingredientIDs []string) (*Quote, error)
}
