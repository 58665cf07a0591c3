package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/commerce-discounts/internal/domain/discount"
	"github.com/xenking/commerce-discounts/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, email, coupon_code, items, subtotal, discount_total, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	createOrderAdjustmentSQL = `INSERT INTO order_adjustments
		(id, order_id, line_item_id, type, name, description, amount, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ordersByEmailSQL = `SELECT id, coupon_code FROM orders WHERE lower(email) = lower($1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists an order and its adjustments in one transaction. Line
// items are serialized to JSON for storage in the JSONB column; each
// adjustment keeps a JSON snapshot of the rule that produced it.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.Email, o.CouponCode, itemsJSON, o.Subtotal, o.DiscountTotal, o.Total,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, adj := range o.Adjustments {
		sourceJSON, err := json.Marshal(adj.Source)
		if err != nil {
			return fmt.Errorf("marshaling adjustment source: %w", err)
		}

		var lineItemID *string
		if adj.LineItemID != "" {
			lineItemID = &adj.LineItemID
		}

		_, err = tx.Exec(ctx, createOrderAdjustmentSQL,
			uuid.New().String(), o.ID, lineItemID,
			string(adj.Type), adj.Name, adj.Description, adj.Amount, sourceJSON,
		)
		if err != nil {
			return fmt.Errorf("creating adjustment for order %q: %w", o.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// OrdersByEmail returns the coupon usage history for an email address,
// matched case-insensitively.
func (r *OrderRepository) OrdersByEmail(ctx context.Context, email string) ([]discount.PreviousOrder, error) {
	rows, err := r.pool.Query(ctx, ordersByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", email, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (discount.PreviousOrder, error) {
		var prev discount.PreviousOrder
		err := row.Scan(&prev.ID, &prev.CouponCode)
		return prev, err
	})
}
