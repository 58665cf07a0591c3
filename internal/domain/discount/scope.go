package discount

// Scope restricts a rule to particular products or categories. A zero Scope
// matches nothing; set All for an explicit match-everything scope.
type Scope struct {
	All        bool
	ProductIDs map[string]struct{}
	Categories map[string]struct{}
}

// ScopeProducts builds a scope matching the given product IDs.
func ScopeProducts(ids ...string) Scope {
	s := Scope{ProductIDs: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ProductIDs[id] = struct{}{}
	}
	return s
}

// ScopeCategories builds a scope matching the given product categories.
func ScopeCategories(categories ...string) Scope {
	s := Scope{Categories: make(map[string]struct{}, len(categories))}
	for _, c := range categories {
		s.Categories[c] = struct{}{}
	}
	return s
}

// ScopeMatcher is a Matcher backed by per-rule scopes keyed by rule ID.
// Rules without a registered scope match every line item, so a matcher built
// from an empty map behaves like "match all".
type ScopeMatcher struct {
	scopes map[string]Scope
}

var _ Matcher = (*ScopeMatcher)(nil)

// NewScopeMatcher creates a ScopeMatcher over the given rule-ID-to-scope
// index. The index is not copied; callers must not mutate it afterwards.
func NewScopeMatcher(scopes map[string]Scope) *ScopeMatcher {
	return &ScopeMatcher{scopes: scopes}
}

// MatchLineItem reports whether the item falls inside the rule's scope.
func (m *ScopeMatcher) MatchLineItem(item LineItem, rule *Rule) bool {
	scope, ok := m.scopes[rule.ID]
	if !ok || scope.All {
		return true
	}
	if _, ok := scope.ProductIDs[item.ProductID]; ok {
		return true
	}
	_, ok = scope.Categories[item.Category]
	return ok
}
