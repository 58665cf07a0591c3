package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// AdjustmentType tags the kind of monetary adjustment applied to an order.
type AdjustmentType string

const (
	// TypeDiscount marks adjustments produced by discount rules.
	TypeDiscount AdjustmentType = "discount"
	// TypeShipping marks shipping cost adjustments applied by other adjusters.
	TypeShipping AdjustmentType = "shipping"
)

// PercentageSubject selects which price a rule's percentage discount is
// computed against.
type PercentageSubject string

const (
	// SubjectDiscountedPrice applies the percentage to the line price after
	// previously applied discounts. This is the default and compounds when
	// several percentage rules stack on the same line.
	SubjectDiscountedPrice PercentageSubject = "discounted"
	// SubjectOriginalPrice applies the percentage to the original line
	// subtotal, ignoring prior discounts.
	SubjectOriginalPrice PercentageSubject = "original"
)

// ErrNilOrder is returned when Adjust is called without an order.
var ErrNilOrder = errors.New("nil order")

// Rule defines a single discount's trigger conditions and monetary effects.
//
// Monetary fields carry the sign of the adjustments they produce: a rule
// taking 5.00 off each item has PerItemDiscount -5.00, a 15%-off rule has
// PercentDiscount -0.15.
type Rule struct {
	ID          string
	Name        string
	Description string

	// Code restricts the rule to orders entered with a matching coupon code
	// (compared case-insensitively). Empty means the rule is considered for
	// every order.
	Code string

	// From/To bound the validity window. A nil end is unbounded.
	From *time.Time
	To   *time.Time

	// PerEmailLimit caps how many times one email address may use the rule's
	// coupon code across orders. Zero means unlimited.
	PerEmailLimit int

	// AllGroups opens the rule to every customer. When false, the order's
	// customer must belong to at least one of UserGroupIDs.
	AllGroups    bool
	UserGroupIDs []string

	// Purchase thresholds over the matching line items. MaxPurchaseQty and
	// PurchaseQty are quantity bounds (zero MaxPurchaseQty means unbounded);
	// PurchaseTotal is the minimum matching subtotal.
	MaxPurchaseQty int
	PurchaseQty    int
	PurchaseTotal  decimal.Decimal

	PerItemDiscount   decimal.Decimal
	PercentDiscount   decimal.Decimal
	PercentageSubject PercentageSubject
	BaseDiscount      decimal.Decimal
	FreeShipping      bool

	// StopProcessing halts evaluation of subsequent rules once this rule has
	// produced at least one adjustment.
	StopProcessing bool
}

// Adjustment is a single monetary effect produced by a rule. Discount
// amounts are negative.
type Adjustment struct {
	Type        AdjustmentType
	Name        string
	Description string
	OrderID     string

	// LineItemID is empty for order-level adjustments such as base discounts.
	LineItemID string

	Amount decimal.Decimal

	// Source is a snapshot of the rule that produced the adjustment, kept
	// for audit history. The engine never reads it back.
	Source Rule
}

// Order is a read-only snapshot of the order under evaluation. The engine
// never mutates it.
type Order struct {
	ID         string
	CouponCode string
	Email      string
	Customer   *Customer
	LineItems  []LineItem
}

// Customer carries the group memberships used by group-restricted rules.
// A nil Customer on the order means a guest checkout.
type Customer struct {
	GroupIDs []string
}

// LineItem is one product/quantity entry of the order snapshot. ProductID
// and Category are opaque to the engine; matchers use them.
type LineItem struct {
	ID        string
	ProductID string
	Category  string
	Qty       int
	Subtotal  decimal.Decimal

	// AdjustmentTotals holds already-applied adjustment sums keyed by type,
	// e.g. a prior discount total of -8.00 or a shipping cost of 4.00.
	AdjustmentTotals map[AdjustmentType]decimal.Decimal
}

// AdjustmentsTotal returns the already-applied total for the given
// adjustment type, or zero when none was applied.
func (li LineItem) AdjustmentsTotal(t AdjustmentType) decimal.Decimal {
	return li.AdjustmentTotals[t]
}

// Matcher decides whether a line item qualifies for a rule. Product and
// category targeting live behind this interface, outside the engine.
type Matcher interface {
	MatchLineItem(item LineItem, rule *Rule) bool
}

// PreviousOrder is the slice of order history the per-email usage limit
// check needs.
type PreviousOrder struct {
	ID         string
	CouponCode string
}

// OrderHistory looks up a customer's previous orders by email.
type OrderHistory interface {
	OrdersByEmail(ctx context.Context, email string) ([]PreviousOrder, error)
}

// Catalog lists the active discount rules in evaluation order.
type Catalog interface {
	ListActive(ctx context.Context) ([]*Rule, error)
}
