package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a customer pizza order. Price and CouponIDs arrive as untrusted
// client input; both are authoritative only after the service has
// reconciled them against catalog prices. After successful processing
// CouponIDs holds at most one entry: the coupon that actually produced the
// lowest valid price.
type Order struct {
	ID         string
	Foods      []FoodLine
	StoreID    string
	UserID     string
	PickupTime time.Time
	Price      decimal.Decimal
	CouponIDs  []string

	// Version supports optimistic concurrency on edits. Zero for a new order.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FoodLine is one unit of a recipe in an order. Base ingredients belong to
// the recipe's standard composition and are never priced separately; extra
// ingredients are each priced individually on top of the recipe price.
type FoodLine struct {
	RecipeID         string
	BaseIngredients  []string
	ExtraIngredients []string
}

// ReferencedIDs collects the distinct recipe IDs and distinct ingredient IDs
// (base and extra both) referenced across the given food lines, preserving
// first-seen order. Base ingredients are included even though they are not
// charged: the catalog must know every ID for the order to be priceable.
func ReferencedIDs(foods []FoodLine) (recipeIDs, ingredientIDs []string) {
	seenRecipes := make(map[string]struct{}, len(foods))
	seenIngredients := make(map[string]struct{})

	addIngredient := func(id string) {
		if _, ok := seenIngredients[id]; !ok {
			seenIngredients[id] = struct{}{}
			ingredientIDs = append(ingredientIDs, id)
		}
	}

	for _, f := range foods {
		if _, ok := seenRecipes[f.RecipeID]; !ok {
			seenRecipes[f.RecipeID] = struct{}{}
			recipeIDs = append(recipeIDs, f.RecipeID)
		}
		for _, id := range f.BaseIngredients {
			addIngredient(id)
		}
		for _, id := range f.ExtraIngredients {
			addIngredient(id)
		}
	}
	return recipeIDs, ingredientIDs
}

// Repository defines persistence operations for orders. Implementations
// must return ErrOrderNotFound from Get/Delete for unknown IDs and
// ErrEditConflict from Update when the stored version no longer matches.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
}
