package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/commerce-discounts/internal/domain/discount"
	"github.com/xenking/commerce-discounts/internal/domain/product"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems      = fmt.Errorf("items required")
	ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// CustomerInfo identifies the customer placing the order, when known.
// Group-restricted discount rules only apply to orders with customer info.
type CustomerInfo struct {
	GroupIDs []string
}

// OrderItem holds one requested product/quantity pair.
type OrderItem struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing or quoting an order.
type PlaceOrderRequest struct {
	Items      []OrderItem
	CouponCode string
	Email      string
	Customer   *CustomerInfo
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Products []product.Product
}

// Service prices orders by running the discount adjuster over the active
// rule catalog, and persists the result.
type Service struct {
	products product.Repository
	catalog  discount.Catalog
	adjuster *discount.Adjuster
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	catalog discount.Catalog,
	adjuster *discount.Adjuster,
	orders Repository,
) *Service {
	return &Service{
		products: products,
		catalog:  catalog,
		adjuster: adjuster,
		orders:   orders,
	}
}

// PlaceOrder validates items, prices the order through the discount
// adjuster, persists it, and returns the result.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	o, products, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &PlaceOrderResult{
		Order:    o,
		Products: products,
	}, nil
}

// Quote prices an order without persisting it, returning the adjustments
// the discount catalog would currently produce.
func (s *Service) Quote(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	o, products, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}

	return &PlaceOrderResult{
		Order:    o,
		Products: products,
	}, nil
}

func (s *Service) price(ctx context.Context, req PlaceOrderRequest) (*Order, []product.Product, error) {
	if len(req.Items) == 0 {
		return nil, nil, ErrEmptyItems
	}

	// Validate quantities and collect product IDs.
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Verify every requested product was found.
	products := make([]product.Product, 0, len(req.Items))
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products = append(products, p)
	}

	orderID := uuid.New().String()

	// Build order lines and the read-only snapshot the adjuster consumes.
	items := make([]LineItem, len(req.Items))
	snapshotItems := make([]discount.LineItem, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		lineSubtotal := products[i].Subtotal(item.Quantity)

		items[i] = LineItem{
			ID:        uuid.New().String(),
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Subtotal:  lineSubtotal,
		}
		snapshotItems[i] = discount.LineItem{
			ID:        items[i].ID,
			ProductID: item.ProductID,
			Category:  products[i].Category,
			Qty:       item.Quantity,
			Subtotal:  lineSubtotal,
		}
		subtotal = subtotal.Add(lineSubtotal)
	}

	snapshot := &discount.Order{
		ID:         orderID,
		CouponCode: req.CouponCode,
		Email:      req.Email,
		LineItems:  snapshotItems,
	}
	if req.Customer != nil {
		snapshot.Customer = &discount.Customer{GroupIDs: req.Customer.GroupIDs}
	}

	rules, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list discounts: %w", err)
	}

	adjustments, err := s.adjuster.Adjust(ctx, snapshot, rules)
	if err != nil {
		return nil, nil, fmt.Errorf("adjust order: %w", err)
	}

	discountTotal := decimal.Zero
	for _, adj := range adjustments {
		if adj.Type == discount.TypeDiscount {
			discountTotal = discountTotal.Add(adj.Amount)
		}
	}

	// Total = subtotal + (negative) adjustments, floored at zero.
	total := subtotal.Add(discountTotal)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Order{
		ID:            orderID,
		Email:         req.Email,
		CouponCode:    req.CouponCode,
		Items:         items,
		Adjustments:   adjustments,
		Subtotal:      subtotal.Round(2),
		DiscountTotal: discountTotal.Round(2),
		Total:         total.Round(2),
	}, products, nil
}
