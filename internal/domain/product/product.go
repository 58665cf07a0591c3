package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a purchasable catalog item. Category feeds discount scope
// matching; prices are exact decimals.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	Image    Image
}

// Image holds the responsive image variants served for a product.
type Image struct {
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// Subtotal returns the undiscounted line price for qty units, rounded to the
// currency minor unit.
func (p Product) Subtotal(qty int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
