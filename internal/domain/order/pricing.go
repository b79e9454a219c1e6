package order

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ovenline/pizzeria-orders/internal/catalog"
	"github.com/ovenline/pizzeria-orders/internal/domain/coupon"
)

// PriceResult is the outcome of pricing an order: the lowest achievable
// total and the coupon that produced it. CouponID is empty when no coupon
// strictly improved on the base total.
type PriceResult struct {
	Total    decimal.Decimal
	CouponID string
}

// PriceOrder derives the order total from authoritative catalog prices and
// picks the best coupon. Base total is the sum over food lines of the recipe
// price plus each extra ingredient's price; base ingredients are free. A
// coupon replaces the current best total only when its total is strictly
// lower, so ties keep the earlier candidate and no coupon is reported unless
// one actually reduced the price.
//
// Pure function: no I/O, deterministic for fixed inputs.
func PriceOrder(foods []FoodLine, quote *catalog.Quote, coupons []coupon.Coupon) (PriceResult, error) {
	base := decimal.Zero
	lines := make([]coupon.Line, 0, len(foods))

	for _, f := range foods {
		recipe, ok := quote.Recipe(f.RecipeID)
		if !ok {
			return PriceResult{}, errors.Errorf("recipe %s not in quote", f.RecipeID)
		}

		lineTotal := recipe.Price
		for _, id := range f.ExtraIngredients {
			ing, ok := quote.Ingredient(id)
			if !ok {
				return PriceResult{}, errors.Errorf("ingredient %s not in quote", id)
			}
			lineTotal = lineTotal.Add(ing.Price)
		}

		base = base.Add(lineTotal)
		lines = append(lines, coupon.Line{RecipeID: f.RecipeID, RecipePrice: recipe.Price})
	}

	best := base
	chosen := ""
	for _, c := range coupons {
		if total := c.Total(lines, base); total.LessThan(best) {
			best = total
			chosen = c.ID()
		}
	}

	return PriceResult{Total: best, CouponID: chosen}, nil
}
