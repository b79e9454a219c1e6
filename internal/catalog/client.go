package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds the catalog round-trip. The price fetch is the only
// suspension point in order processing, so it must never hang indefinitely.
const DefaultTimeout = 5 * time.Second

var _ Gateway = (*Client)(nil)

// Client implements Gateway against the catalog service's price endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a catalog Client. A non-positive timeout falls back to
// DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type priceRequest struct {
	RecipeIDs     []string `json:"recipeIds"`
	IngredientIDs []string `json:"ingredientIds"`
}

type pricedItemJSON struct {
	Price decimal.Decimal `json:"price"`
	Name  string          `json:"name"`
}

type priceResponse struct {
	FoodPrices       map[string]pricedItemJSON `json:"foodPrices"`
	IngredientPrices map[string]pricedItemJSON `json:"ingredientPrices"`
}

// FetchPrices POSTs the requested IDs to the catalog service and decodes the
// quote. It returns ErrUnpriceable when the remote answered with a
// non-success status or the quote is missing any requested ID, and a wrapped
// transport error when the call itself failed.
func (c *Client) FetchPrices(ctx context.Context, recipeIDs, ingredientIDs []string) (*Quote, error) {
	body, err := json.Marshal(priceRequest{
		RecipeIDs:     recipeIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal price request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/prices", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create price request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "catalog request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Wrapf(ErrUnpriceable, "catalog returned status %d", resp.StatusCode)
	}

	var decoded priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decode catalog response")
	}

	quote := &Quote{
		Recipes:     make(map[string]PricedItem, len(decoded.FoodPrices)),
		Ingredients: make(map[string]PricedItem, len(decoded.IngredientPrices)),
	}
	for id, it := range decoded.FoodPrices {
		quote.Recipes[id] = PricedItem(it)
	}
	for id, it := range decoded.IngredientPrices {
		quote.Ingredients[id] = PricedItem(it)
	}

	// The contract is all-or-nothing: an ID the catalog does not know makes
	// the whole order unpriceable, never a partial quote.
	for _, id := range recipeIDs {
		if _, ok := quote.Recipes[id]; !ok {
			return nil, errors.Wrapf(ErrUnpriceable, "recipe %s missing from quote", id)
		}
	}
	for _, id := range ingredientIDs {
		if _, ok := quote.Ingredients[id]; !ok {
			return nil, errors.Wrapf(ErrUnpriceable, "ingredient %s missing from quote", id)
		}
	}

	return quote, nil
}
