// Command seed-db applies migrations and loads a starter data set: the
// product catalog, a representative spread of discount rules, and the
// default API key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/commerce-discounts/internal/domain/auth"
	"github.com/xenking/commerce-discounts/internal/domain/discount"
	"github.com/xenking/commerce-discounts/internal/domain/product"
	"github.com/xenking/commerce-discounts/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or COMMERCE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or COMMERCE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("COMMERCE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or COMMERCE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("COMMERCE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
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

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedDiscounts(ctx, repository.NewDiscountRepository(pool)); err != nil {
		return errors.Wrap(err, "seed discounts")
	}

	if err := seedAPIKey(ctx, repository.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		domain := product.Product{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
			Image: product.Image{
				Thumbnail: p.Image.Thumbnail,
				Mobile:    p.Image.Mobile,
				Tablet:    p.Image.Tablet,
				Desktop:   p.Image.Desktop,
			},
		}
		if err := repo.Upsert(ctx, domain); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

// seedDiscounts registers a spread of rules covering each engine feature:
// coupon and automatic rules, validity windows, thresholds, group
// restrictions, scoped matching, free shipping and halting sales.
func seedDiscounts(ctx context.Context, repo *repository.DiscountRepository) error {
	slog.Info("seeding discount rules")

	saleFrom := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	saleTo := saleFrom.AddDate(0, 1, 0)

	rules := []struct {
		rule       discount.Rule
		sortOrder  int
		productIDs []string
		categories []string
	}{
		{
			rule: discount.Rule{
				ID:              "happy-hours",
				Name:            "Happy Hours",
				Description:     "18% off entire order",
				Code:            "HAPPYHOURS",
				AllGroups:       true,
				PercentDiscount: decimal.RequireFromString("-0.18"),
			},
			sortOrder: 10,
		},
		{
			rule: discount.Rule{
				ID:              "welcome-once",
				Name:            "Welcome",
				Description:     "25% off your first order",
				Code:            "WELCOME",
				AllGroups:       true,
				PerEmailLimit:   1,
				PercentDiscount: decimal.RequireFromString("-0.25"),
			},
			sortOrder: 20,
		},
		{
			rule: discount.Rule{
				ID:              "autumn-desserts",
				Name:            "Autumn dessert sale",
				Description:     "$2 off every dessert during September",
				From:            &saleFrom,
				To:              &saleTo,
				AllGroups:       true,
				PerItemDiscount: decimal.RequireFromString("-2.00"),
			},
			sortOrder:  30,
			categories: []string{"desserts"},
		},
		{
			rule: discount.Rule{
				ID:              "vip-perk",
				Name:            "VIP perk",
				Description:     "10% off for VIP members",
				AllGroups:       false,
				UserGroupIDs:    []string{"vip"},
				PercentDiscount: decimal.RequireFromString("-0.10"),
			},
			sortOrder: 40,
		},
		{
			rule: discount.Rule{
				ID:            "bulk-order",
				Name:          "Bulk order",
				Description:   "$15 off orders of 10+ matching items",
				AllGroups:     true,
				PurchaseQty:   10,
				PurchaseTotal: decimal.RequireFromString("100.00"),
				BaseDiscount:  decimal.RequireFromString("-15.00"),
			},
			sortOrder: 50,
		},
		{
			rule: discount.Rule{
				ID:            "free-shipping-50",
				Name:          "Free shipping",
				Description:   "Free shipping on orders over $50",
				AllGroups:     true,
				PurchaseTotal: decimal.RequireFromString("50.00"),
				FreeShipping:  true,
			},
			sortOrder: 60,
		},
		{
			rule: discount.Rule{
				ID:              "clearance-final",
				Name:            "Clearance",
				Description:     "Half price clearance, not combinable",
				Code:            "CLEARANCE",
				AllGroups:       true,
				PercentDiscount: decimal.RequireFromString("-0.50"),
				StopProcessing:  true,
			},
			sortOrder:  5,
			productIDs: []string{"1", "2"},
		},
	}

	for _, entry := range rules {
		if err := repo.Upsert(ctx, &entry.rule, entry.sortOrder); err != nil {
			return errors.Wrapf(err, "upsert discount %s", entry.rule.ID)
		}
		if len(entry.productIDs) > 0 || len(entry.categories) > 0 {
			if err := repo.SetScope(ctx, entry.rule.ID, entry.productIDs, entry.categories); err != nil {
				return errors.Wrapf(err, "set scope for discount %s", entry.rule.ID)
			}
		}

		slog.Info("upserted discount", slog.String("id", entry.rule.ID), slog.String("name", entry.rule.Name))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *repository.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	if err := repo.Upsert(ctx, auth.Key{
		ID:     "default",
		Hash:   auth.HashKey([]byte(pepper), apiKey),
		Name:   "Default test key",
		Scopes: []string{auth.ScopeCreateOrder},
	}); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default test key"))

	return nil
}
