package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/commerce-discounts/internal/domain/discount"
)

// Order represents a priced customer order with its applied adjustments.
type Order struct {
	ID          string
	Email       string
	CouponCode  string
	Items       []LineItem
	Adjustments []discount.Adjustment

	// Subtotal is the pre-discount sum of line subtotals. DiscountTotal is
	// the (negative) sum of discount adjustment amounts. Total is the final
	// amount due, floored at zero.
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	Total         decimal.Decimal

	CreatedAt time.Time
}

// LineItem represents a single product/quantity entry in an order.
type LineItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Repository defines persistence operations for orders. OrdersByEmail also
// satisfies discount.OrderHistory, powering the per-email usage limit.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	OrdersByEmail(ctx context.Context, email string) ([]discount.PreviousOrder, error)
}
