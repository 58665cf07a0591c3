package handler

import (
	"net/http"

	"github.com/xenking/commerce-discounts/internal/domain/discount"
	"github.com/xenking/commerce-discounts/internal/domain/order"
	"github.com/xenking/commerce-discounts/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the HTTP API, delegating business logic to the order
// service and the domain repositories.
type Handler struct {
	products     product.Repository
	orderService *order.Service
	discounts    discount.Catalog
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	orderService *order.Service,
	discounts discount.Catalog,
) *Handler {
	return &Handler{
		products:     products,
		orderService: orderService,
		discounts:    discounts,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes registers the API endpoints on the given mux. Catalog reads stay
// open; order placement and quoting go through protect when it is non-nil.
func (h *Handler) Routes(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}

	mux.HandleFunc("GET /api/product", h.listProducts)
	mux.HandleFunc("GET /api/product/{productId}", h.getProduct)
	mux.HandleFunc("GET /api/discount", h.listDiscounts)
	mux.Handle("POST /api/order", protect(http.HandlerFunc(h.placeOrder)))
	mux.Handle("POST /api/order/quote", protect(http.HandlerFunc(h.quoteOrder)))
}
