package discount

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Adjuster evaluates discount rules against an order snapshot and produces
// the resulting adjustments. It performs no I/O of its own and is safe for
// concurrent use as long as the inputs are not mutated during a call.
type Adjuster struct {
	matcher Matcher
	history OrderHistory
	now     func() time.Time
}

// NewAdjuster creates an Adjuster with the given line-item matcher and
// order-history lookup.
func NewAdjuster(matcher Matcher, history OrderHistory) *Adjuster {
	return &Adjuster{matcher: matcher, history: history, now: time.Now}
}

// Adjust selects the candidate rules for the order (no coupon code, or a
// code matching the order's case-insensitively), evaluates them in catalog
// order, and returns the combined adjustment list. A rule carrying the
// stop-processing flag halts evaluation of later rules, but only when it
// produced adjustments itself.
func (a *Adjuster) Adjust(ctx context.Context, ord *Order, rules []*Rule) ([]Adjustment, error) {
	if ord == nil {
		return nil, ErrNilOrder
	}

	var adjustments []Adjustment
	for _, rule := range rules {
		if !isCandidate(ord, rule) {
			continue
		}

		ruleAdjustments, err := a.evaluateRule(ctx, ord, rule)
		if err != nil {
			return nil, err
		}
		if len(ruleAdjustments) == 0 {
			continue
		}

		adjustments = append(adjustments, ruleAdjustments...)

		if rule.StopProcessing {
			break
		}
	}

	return adjustments, nil
}

// isCandidate reports whether the rule applies globally or is unlocked by
// the order's coupon code.
func isCandidate(ord *Order, rule *Rule) bool {
	if rule.Code == "" {
		return true
	}
	return ord.CouponCode != "" && strings.EqualFold(ord.CouponCode, rule.Code)
}

// evaluateRule runs the eligibility pipeline for a single rule and computes
// its adjustments. Every failed condition rejects the rule silently: the
// returned slice is empty and evaluation of other rules continues.
func (a *Adjuster) evaluateRule(ctx context.Context, ord *Order, rule *Rule) ([]Adjustment, error) {
	// Per-email usage limit, only relevant when the coupon actually unlocked
	// this rule.
	if strings.EqualFold(ord.CouponCode, rule.Code) && ord.Email != "" && rule.PerEmailLimit > 0 {
		previous, err := a.history.OrdersByEmail(ctx, ord.Email)
		if err != nil {
			return nil, errors.Wrap(err, "orders by email")
		}

		used := 0
		for _, prev := range previous {
			if strings.EqualFold(prev.CouponCode, rule.Code) {
				used++
			}
		}
		if used >= rule.PerEmailLimit {
			return nil, nil
		}
	}

	now := a.now()
	if rule.From != nil && now.Before(*rule.From) {
		return nil, nil
	}
	if rule.To != nil && now.After(*rule.To) {
		return nil, nil
	}

	// Aggregate the qualifying line items.
	matching := make(map[string]struct{})
	matchingQty := 0
	matchingTotal := decimal.Zero
	for _, item := range ord.LineItems {
		if !a.matcher.MatchLineItem(item, rule) {
			continue
		}
		if !rule.AllGroups && !inEligibleGroup(ord.Customer, rule.UserGroupIDs) {
			continue
		}
		matching[item.ID] = struct{}{}
		matchingQty += item.Qty
		matchingTotal = matchingTotal.Add(item.Subtotal)
	}

	if matchingQty == 0 {
		return nil, nil
	}
	if rule.MaxPurchaseQty > 0 && matchingQty > rule.MaxPurchaseQty {
		return nil, nil
	}
	if matchingQty < rule.PurchaseQty {
		return nil, nil
	}
	if matchingTotal.LessThan(rule.PurchaseTotal) {
		return nil, nil
	}

	var adjustments []Adjustment

	for _, item := range ord.LineItems {
		if _, ok := matching[item.ID]; !ok {
			continue
		}

		prior := item.AdjustmentsTotal(TypeDiscount)
		discountedPrice := item.Subtotal.Add(prior)

		amountPerItem := round(rule.PerItemDiscount.Mul(decimal.NewFromInt(int64(item.Qty))))

		// The percentage comes off the already-discounted price unless the
		// rule targets the original sale price.
		amountPercentage := round(rule.PercentDiscount.Mul(discountedPrice))
		if rule.PercentageSubject == SubjectOriginalPrice {
			amountPercentage = round(rule.PercentDiscount.Mul(item.Subtotal))
		}

		amount := amountPerItem.Add(amountPercentage)

		// Cap the cumulative discount at the line subtotal: the effective
		// line price never goes below zero.
		if amount.Add(prior).Neg().GreaterThan(item.Subtotal) {
			amount = item.Subtotal.Add(prior).Neg()
		}

		if !amount.IsZero() {
			adj := newAdjustment(ord, rule)
			adj.LineItemID = item.ID
			adj.Amount = amount
			adjustments = append(adjustments, adj)
		}
	}

	if rule.FreeShipping {
		for _, item := range ord.LineItems {
			if _, ok := matching[item.ID]; !ok {
				continue
			}
			shipping := item.AdjustmentsTotal(TypeShipping)
			if !shipping.IsPositive() {
				continue
			}
			adj := newAdjustment(ord, rule)
			adj.LineItemID = item.ID
			adj.Amount = shipping.Neg()
			adj.Description = "Remove Shipping Cost"
			adjustments = append(adjustments, adj)
		}
	}

	if !rule.BaseDiscount.IsZero() {
		adj := newAdjustment(ord, rule)
		adj.Amount = rule.BaseDiscount
		adjustments = append(adjustments, adj)
	}

	return adjustments, nil
}

// inEligibleGroup reports whether the customer belongs to any of the rule's
// eligible groups. Guest orders (nil customer) never qualify for
// group-restricted rules.
func inEligibleGroup(customer *Customer, groupIDs []string) bool {
	if customer == nil {
		return false
	}
	for _, have := range customer.GroupIDs {
		for _, want := range groupIDs {
			if have == want {
				return true
			}
		}
	}
	return false
}

// newAdjustment prepares an adjustment carrying the rule's display fields
// and a snapshot of the rule itself.
func newAdjustment(ord *Order, rule *Rule) Adjustment {
	return Adjustment{
		Type:        TypeDiscount,
		Name:        rule.Name,
		Description: rule.Description,
		OrderID:     ord.ID,
		Source:      *rule,
	}
}

// round rounds to the currency minor unit (2 fractional digits, half away
// from zero). Applied to every monetary multiplication before amounts are
// combined.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
