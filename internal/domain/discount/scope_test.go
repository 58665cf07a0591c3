package discount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeMatcher(t *testing.T) {
	matcher := NewScopeMatcher(map[string]Scope{
		"by-product":  ScopeProducts("p1", "p2"),
		"by-category": ScopeCategories("desserts"),
		"everything":  {All: true},
		"nothing":     {},
	})

	tests := []struct {
		name   string
		ruleID string
		item   LineItem
		want   bool
	}{
		{"listed product", "by-product", LineItem{ProductID: "p1"}, true},
		{"unlisted product", "by-product", LineItem{ProductID: "p9"}, false},
		{"listed category", "by-category", LineItem{ProductID: "p9", Category: "desserts"}, true},
		{"unlisted category", "by-category", LineItem{ProductID: "p9", Category: "mains"}, false},
		{"explicit all", "everything", LineItem{ProductID: "p9"}, true},
		{"empty scope matches nothing", "nothing", LineItem{ProductID: "p1", Category: "desserts"}, false},
		{"unscoped rule matches everything", "unknown-rule", LineItem{ProductID: "p9"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matcher.MatchLineItem(tt.item, &Rule{ID: tt.ruleID})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScopeMatcher_Empty(t *testing.T) {
	matcher := NewScopeMatcher(nil)
	assert.True(t, matcher.MatchLineItem(LineItem{ProductID: "p1"}, &Rule{ID: "r1"}))
}
