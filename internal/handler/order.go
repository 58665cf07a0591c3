package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/commerce-discounts/internal/domain/discount"
	"github.com/xenking/commerce-discounts/internal/domain/order"
)

// orderRequest is the wire form of an order placement or quote request.
type orderRequest struct {
	CouponCode string `json:"couponCode"`
	Email      string `json:"email"`
	Customer   *struct {
		GroupIDs []string `json:"groupIds"`
	} `json:"customer"`
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

// placeOrder prices the order through the discount engine, persists it, and
// returns the priced order.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.orderService.PlaceOrder)
}

// quoteOrder prices the order without persisting it.
func (h *Handler) quoteOrder(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.orderService.Quote)
}

func (h *Handler) handleOrder(
	w http.ResponseWriter,
	r *http.Request,
	price func(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error),
) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	domainReq := order.PlaceOrderRequest{
		CouponCode: req.CouponCode,
		Email:      req.Email,
		Items:      make([]order.OrderItem, len(req.Items)),
	}
	for i, item := range req.Items {
		domainReq.Items[i] = order.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}
	if req.Customer != nil {
		domainReq.Customer = &order.CustomerInfo{GroupIDs: req.Customer.GroupIDs}
	}

	result, err := price(r.Context(), domainReq)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeOrder(e, result)
	})
}

// writeOrderError maps domain errors to the error envelope.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyItems) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, http.StatusUnprocessableEntity, iqErr.Error())
		return
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		writeError(w, http.StatusUnprocessableEntity, pnfErr.Error())
		return
	}

	zctx.From(r.Context()).Error("Order pricing", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) encodeOrder(e *jx.Encoder, result *order.PlaceOrderResult) {
	o := result.Order

	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("subtotal")
	e.Float64(o.Subtotal.InexactFloat64())
	e.FieldStart("discount")
	e.Float64(o.DiscountTotal.InexactFloat64())
	e.FieldStart("total")
	e.Float64(o.Total.InexactFloat64())

	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("subtotal")
		e.Float64(item.Subtotal.InexactFloat64())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("adjustments")
	e.ArrStart()
	for _, adj := range o.Adjustments {
		encodeAdjustment(e, adj)
	}
	e.ArrEnd()

	e.FieldStart("products")
	e.ArrStart()
	for _, p := range result.Products {
		h.encodeProduct(e, p)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeAdjustment(e *jx.Encoder, adj discount.Adjustment) {
	e.ObjStart()
	e.FieldStart("type")
	e.Str(string(adj.Type))
	e.FieldStart("name")
	e.Str(adj.Name)
	e.FieldStart("description")
	e.Str(adj.Description)
	if adj.LineItemID != "" {
		e.FieldStart("lineItemId")
		e.Str(adj.LineItemID)
	}
	e.FieldStart("amount")
	e.Float64(adj.Amount.InexactFloat64())
	e.ObjEnd()
}
