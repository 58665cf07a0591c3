package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/commerce-discounts/internal/domain/discount"
)

// listDiscounts returns the active discount rules in evaluation order.
func (h *Handler) listDiscounts(w http.ResponseWriter, r *http.Request) {
	rules, err := h.discounts.ListActive(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("List discounts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, rule := range rules {
			encodeRule(e, rule)
		}
		e.ArrEnd()
	})
}

func encodeRule(e *jx.Encoder, rule *discount.Rule) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(rule.ID)
	e.FieldStart("name")
	e.Str(rule.Name)
	if rule.Description != "" {
		e.FieldStart("description")
		e.Str(rule.Description)
	}
	if rule.Code != "" {
		e.FieldStart("code")
		e.Str(rule.Code)
	}
	encodeTime(e, "from", rule.From)
	encodeTime(e, "to", rule.To)
	e.FieldStart("perItemDiscount")
	e.Float64(rule.PerItemDiscount.InexactFloat64())
	e.FieldStart("percentDiscount")
	e.Float64(rule.PercentDiscount.InexactFloat64())
	e.FieldStart("baseDiscount")
	e.Float64(rule.BaseDiscount.InexactFloat64())
	e.FieldStart("freeShipping")
	e.Bool(rule.FreeShipping)
	e.FieldStart("stopProcessing")
	e.Bool(rule.StopProcessing)
	e.ObjEnd()
}

func encodeTime(e *jx.Encoder, field string, t *time.Time) {
	if t == nil {
		return
	}
	e.FieldStart(field)
	e.Str(t.Format(time.RFC3339))
}
