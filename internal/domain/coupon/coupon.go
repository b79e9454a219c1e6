package coupon

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind enumerates the supported coupon kinds.
type Kind string

const (
	// KindPercentage takes a fraction off the whole order total.
	KindPercentage Kind = "percentage"
	// KindTwoForOne makes every second unit of the same recipe free.
	KindTwoForOne Kind = "two_for_one"
)

var one = decimal.NewFromInt(1)

// InvalidDefinitionError indicates a coupon definition that cannot be
// constructed, e.g. a percentage outside [0, 1].
type InvalidDefinitionError struct {
	ID         string
	Percentage decimal.Decimal
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("coupon %s: percentage %s outside [0, 1]", e.ID, e.Percentage)
}

// Line is the pricing-facing projection of a single order food line: the
// recipe it references and that recipe's authoritative unit price. Extra
// ingredients are not part of a Line because no coupon kind discounts them.
type Line struct {
	RecipeID    string
	RecipePrice decimal.Decimal
}

// Coupon is a closed sum over the two supported discount kinds. Total
// computes the hypothetical order total if this coupon were applied; it
// never performs I/O.
type Coupon interface {
	ID() string
	Total(lines []Line, base decimal.Decimal) decimal.Decimal
}

// Percentage discounts the whole order by a fixed fraction.
type Percentage struct {
	Code     string
	Fraction decimal.Decimal
}

// NewPercentage builds a Percentage coupon, rejecting fractions outside [0, 1].
func NewPercentage(id string, fraction decimal.Decimal) (Percentage, error) {
	if fraction.IsNegative() || fraction.GreaterThan(one) {
		return Percentage{}, &InvalidDefinitionError{ID: id, Percentage: fraction}
	}
	return Percentage{Code: id, Fraction: fraction}, nil
}

func (c Percentage) ID() string { return c.Code }

// Total returns base * (1 - fraction).
func (c Percentage) Total(_ []Line, base decimal.Decimal) decimal.Decimal {
	return base.Mul(one.Sub(c.Fraction))
}

// TwoForOne makes every second unit of the same recipe free.
type TwoForOne struct {
	Code string
}

func (c TwoForOne) ID() string { return c.Code }

// Total groups lines by recipe and subtracts floor(count/2) * recipe price
// per recipe from the base total.
func (c TwoForOne) Total(lines []Line, base decimal.Decimal) decimal.Decimal {
	counts := make(map[string]int, len(lines))
	prices := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		counts[l.RecipeID]++
		prices[l.RecipeID] = l.RecipePrice
	}

	reduction := decimal.Zero
	for recipeID, count := range counts {
		free := int64(count / 2)
		if free > 0 {
			reduction = reduction.Add(prices[recipeID].Mul(decimal.NewFromInt(free)))
		}
	}
	return base.Sub(reduction)
}

// Definition is the administrative upsert payload for a coupon. Percentage
// is only meaningful for KindPercentage.
type Definition struct {
	ID         string
	Kind       Kind
	Percentage decimal.Decimal
}

// Build constructs the Coupon described by the definition, validating it.
func (d Definition) Build() (Coupon, error) {
	switch d.Kind {
	case KindPercentage:
		c, err := NewPercentage(d.ID, d.Percentage)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindTwoForOne:
		return TwoForOne{Code: d.ID}, nil
	default:
		return nil, fmt.Errorf("unsupported coupon kind: %q", d.Kind)
	}
}

// Store provides lookup and administrative upsert of coupon definitions.
// The two kinds are persisted in separate collections; FindByIDs searches
// both and silently omits IDs present in neither, preserving the order of
// the input IDs in its result.
type Store interface {
	FindByIDs(ctx context.Context, ids []string) ([]Coupon, error)
	Upsert(ctx context.Context, def Definition) error
	AllIDs(ctx context.Context) ([]string, error)
}
