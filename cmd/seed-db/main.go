package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ovenline/pizzeria-orders/internal/domain/coupon"
	"github.com/ovenline/pizzeria-orders/internal/handler"
	"github.com/ovenline/pizzeria-orders/internal/repository"
)

type couponJSON struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Percentage decimal.Decimal `json:"percentage"`
}

type apiKeyJSON struct {
	Key    string   `json:"key"`
	UserID string   `json:"userId"`
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

func main() {
	var (
		databaseURL  string
		couponsFile  string
		apiKeysFile  string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&couponsFile, "coupons-file", "db/seed/coupons.json", "path to coupons JSON file")
	flag.StringVar(&apiKeysFile, "api-keys-file", "db/seed/api_keys.json", "path to API keys JSON file")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PIZZA_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PIZZA_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, couponsFile, apiKeysFile, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, couponsFile, apiKeysFile, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCoupons(ctx, repository.NewCouponStore(pool), couponsFile); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKeys(ctx, pool, apiKeysFile, pepper); err != nil {
		return errors.Wrap(err, "seed api keys")
	}

	return nil
}

func seedCoupons(ctx context.Context, store coupon.Store, couponsFile string) error {
	slog.Info("reading coupons file", slog.String("path", couponsFile))

	data, err := os.ReadFile(couponsFile)
	if err != nil {
		return errors.Wrap(err, "read coupons file")
	}

	var coupons []couponJSON
	if err := json.Unmarshal(data, &coupons); err != nil {
		return errors.Wrap(err, "parse coupons JSON")
	}

	slog.Info("upserting coupons", slog.Int("count", len(coupons)))

	for _, c := range coupons {
		def := coupon.Definition{
			ID:         c.ID,
			Kind:       coupon.Kind(c.Kind),
			Percentage: c.Percentage,
		}
		if err := store.Upsert(ctx, def); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.ID)
		}

		slog.Info("upserted coupon", slog.String("id", c.ID), slog.String("kind", c.Kind))
	}
	return nil
}

const upsertAPIKeySQL = `INSERT INTO api_keys (key_hash, user_id, name, scopes)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (key_hash) DO UPDATE SET user_id = EXCLUDED.user_id, name = EXCLUDED.name, scopes = EXCLUDED.scopes`

func seedAPIKeys(ctx context.Context, pool *pgxpool.Pool, apiKeysFile, pepper string) error {
	slog.Info("reading api keys file", slog.String("path", apiKeysFile))

	data, err := os.ReadFile(apiKeysFile)
	if err != nil {
		return errors.Wrap(err, "read api keys file")
	}

	var keys []apiKeyJSON
	if err := json.Unmarshal(data, &keys); err != nil {
		return errors.Wrap(err, "parse api keys JSON")
	}

	slog.Info("upserting api keys", slog.Int("count", len(keys)))

	for _, k := range keys {
		hash := handler.HashAPIKey(k.Key, []byte(pepper))
		if _, err := pool.Exec(ctx, upsertAPIKeySQL, hash, k.UserID, k.Name, k.Scopes); err != nil {
			return errors.Wrapf(err, "upsert api key %s", k.Name)
		}

		slog.Info("upserted api key", slog.String("name", k.Name), slog.String("user_id", k.UserID))
	}
	return nil
}
