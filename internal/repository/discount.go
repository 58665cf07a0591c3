package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/commerce-discounts/internal/domain/discount"
)

const (
	listActiveDiscountsSQL = `SELECT id, code, name, description, date_from, date_to,
		per_email_limit, all_groups, max_purchase_qty, purchase_qty, purchase_total,
		per_item_discount, percent_discount, percentage_subject, base_discount,
		free_shipping, stop_processing
		FROM discounts WHERE enabled = TRUE ORDER BY sort_order, id`

	listDiscountGroupsSQL = `SELECT discount_id, user_group_id FROM discount_user_groups`

	listDiscountScopesSQL = `SELECT discount_id, product_id, category FROM discount_scopes`

	upsertDiscountSQL = `INSERT INTO discounts (id, code, name, description, date_from, date_to,
		per_email_limit, all_groups, max_purchase_qty, purchase_qty, purchase_total,
		per_item_discount, percent_discount, percentage_subject, base_discount,
		free_shipping, stop_processing, sort_order, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, name = EXCLUDED.name, description = EXCLUDED.description,
			date_from = EXCLUDED.date_from, date_to = EXCLUDED.date_to,
			per_email_limit = EXCLUDED.per_email_limit, all_groups = EXCLUDED.all_groups,
			max_purchase_qty = EXCLUDED.max_purchase_qty, purchase_qty = EXCLUDED.purchase_qty,
			purchase_total = EXCLUDED.purchase_total, per_item_discount = EXCLUDED.per_item_discount,
			percent_discount = EXCLUDED.percent_discount, percentage_subject = EXCLUDED.percentage_subject,
			base_discount = EXCLUDED.base_discount, free_shipping = EXCLUDED.free_shipping,
			stop_processing = EXCLUDED.stop_processing, sort_order = EXCLUDED.sort_order,
			enabled = TRUE`

	deleteDiscountGroupsSQL = `DELETE FROM discount_user_groups WHERE discount_id = $1`
	insertDiscountGroupSQL  = `INSERT INTO discount_user_groups (discount_id, user_group_id) VALUES ($1, $2)`

	deleteDiscountScopesSQL        = `DELETE FROM discount_scopes WHERE discount_id = $1`
	insertDiscountProductScopeSQL  = `INSERT INTO discount_scopes (discount_id, product_id) VALUES ($1, $2)`
	insertDiscountCategoryScopeSQL = `INSERT INTO discount_scopes (discount_id, category) VALUES ($1, $2)`
)

var (
	_ discount.Catalog = (*DiscountRepository)(nil)
	_ discount.Matcher = (*DiscountRepository)(nil)
)

// DiscountRepository provides the active discount catalog backed by
// PostgreSQL. It doubles as the engine's line-item matcher: ListActive
// rebuilds a scope index from the same snapshot the rules came from, so
// matching and rules never disagree within one evaluation.
type DiscountRepository struct {
	pool    *pgxpool.Pool
	matcher atomic.Pointer[discount.ScopeMatcher]
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// ListActive returns all enabled discount rules in evaluation order and
// refreshes the scope index used by MatchLineItem.
func (r *DiscountRepository) ListActive(ctx context.Context) ([]*discount.Rule, error) {
	rows, err := r.pool.Query(ctx, listActiveDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}

	rules, err := pgx.CollectRows(rows, scanDiscountRule)
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}

	byID := make(map[string]*discount.Rule, len(rules))
	out := make([]*discount.Rule, len(rules))
	for i := range rules {
		out[i] = &rules[i]
		byID[rules[i].ID] = out[i]
	}

	if err := r.loadGroups(ctx, byID); err != nil {
		return nil, err
	}

	scopes, err := r.loadScopes(ctx, byID)
	if err != nil {
		return nil, err
	}
	r.matcher.Store(discount.NewScopeMatcher(scopes))

	return out, nil
}

// MatchLineItem consults the scope index built by the last ListActive call.
// Before the first load every item matches, which is harmless: without a
// loaded catalog there are no rules to evaluate.
func (r *DiscountRepository) MatchLineItem(item discount.LineItem, rule *discount.Rule) bool {
	m := r.matcher.Load()
	if m == nil {
		return true
	}
	return m.MatchLineItem(item, rule)
}

// Upsert creates or replaces a discount rule together with its eligible
// user groups.
func (r *DiscountRepository) Upsert(ctx context.Context, rule *discount.Rule, sortOrder int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("upserting discount %q: %w", rule.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, upsertDiscountSQL,
		rule.ID, rule.Code, rule.Name, rule.Description, rule.From, rule.To,
		rule.PerEmailLimit, rule.AllGroups, rule.MaxPurchaseQty, rule.PurchaseQty,
		rule.PurchaseTotal, rule.PerItemDiscount, rule.PercentDiscount,
		string(subjectOrDefault(rule.PercentageSubject)), rule.BaseDiscount,
		rule.FreeShipping, rule.StopProcessing, sortOrder,
	)
	if err != nil {
		return fmt.Errorf("upserting discount %q: %w", rule.ID, err)
	}

	if _, err := tx.Exec(ctx, deleteDiscountGroupsSQL, rule.ID); err != nil {
		return fmt.Errorf("replacing groups for discount %q: %w", rule.ID, err)
	}
	for _, groupID := range rule.UserGroupIDs {
		if _, err := tx.Exec(ctx, insertDiscountGroupSQL, rule.ID, groupID); err != nil {
			return fmt.Errorf("replacing groups for discount %q: %w", rule.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// SetScope replaces the product/category scope of a rule. A rule without
// scope rows matches every line item.
func (r *DiscountRepository) SetScope(ctx context.Context, discountID string, productIDs, categories []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("setting scope for discount %q: %w", discountID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, deleteDiscountScopesSQL, discountID); err != nil {
		return fmt.Errorf("setting scope for discount %q: %w", discountID, err)
	}
	for _, productID := range productIDs {
		if _, err := tx.Exec(ctx, insertDiscountProductScopeSQL, discountID, productID); err != nil {
			return fmt.Errorf("setting scope for discount %q: %w", discountID, err)
		}
	}
	for _, category := range categories {
		if _, err := tx.Exec(ctx, insertDiscountCategoryScopeSQL, discountID, category); err != nil {
			return fmt.Errorf("setting scope for discount %q: %w", discountID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *DiscountRepository) loadGroups(ctx context.Context, byID map[string]*discount.Rule) error {
	rows, err := r.pool.Query(ctx, listDiscountGroupsSQL)
	if err != nil {
		return fmt.Errorf("listing discount groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var discountID, groupID string
		if err := rows.Scan(&discountID, &groupID); err != nil {
			return fmt.Errorf("scanning discount group: %w", err)
		}
		if rule, ok := byID[discountID]; ok {
			rule.UserGroupIDs = append(rule.UserGroupIDs, groupID)
		}
	}
	return rows.Err()
}

func (r *DiscountRepository) loadScopes(ctx context.Context, byID map[string]*discount.Rule) (map[string]discount.Scope, error) {
	rows, err := r.pool.Query(ctx, listDiscountScopesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discount scopes: %w", err)
	}
	defer rows.Close()

	scopes := make(map[string]discount.Scope)
	for rows.Next() {
		var (
			discountID string
			productID  *string
			category   *string
		)
		if err := rows.Scan(&discountID, &productID, &category); err != nil {
			return nil, fmt.Errorf("scanning discount scope: %w", err)
		}
		if _, ok := byID[discountID]; !ok {
			continue
		}

		scope, ok := scopes[discountID]
		if !ok {
			scope = discount.Scope{
				ProductIDs: make(map[string]struct{}),
				Categories: make(map[string]struct{}),
			}
		}
		if productID != nil {
			scope.ProductIDs[*productID] = struct{}{}
		}
		if category != nil {
			scope.Categories[*category] = struct{}{}
		}
		scopes[discountID] = scope
	}
	return scopes, rows.Err()
}

func scanDiscountRule(row pgx.CollectableRow) (discount.Rule, error) {
	var (
		rule    discount.Rule
		subject string
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &rule.Name, &rule.Description, &rule.From, &rule.To,
		&rule.PerEmailLimit, &rule.AllGroups, &rule.MaxPurchaseQty, &rule.PurchaseQty,
		&rule.PurchaseTotal, &rule.PerItemDiscount, &rule.PercentDiscount,
		&subject, &rule.BaseDiscount, &rule.FreeShipping, &rule.StopProcessing,
	)
	rule.PercentageSubject = discount.PercentageSubject(subject)
	return rule, err
}

func subjectOrDefault(s discount.PercentageSubject) discount.PercentageSubject {
	if s == "" {
		return discount.SubjectDiscountedPrice
	}
	return s
}
