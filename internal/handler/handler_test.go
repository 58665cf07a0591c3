package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/commerce-discounts/internal/domain/auth"
	"github.com/xenking/commerce-discounts/internal/domain/discount"
	"github.com/xenking/commerce-discounts/internal/domain/order"
	"github.com/xenking/commerce-discounts/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []product.Product
	byID     map[string]*product.Product
	listErr  error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockCatalog struct {
	rules []*discount.Rule
	err   error
}

func (m *mockCatalog) ListActive(_ context.Context) ([]*discount.Rule, error) {
	return m.rules, m.err
}

type mockOrderRepo struct {
	lastOrder *order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.lastOrder = o
	return nil
}

func (m *mockOrderRepo) OrdersByEmail(_ context.Context, _ string) ([]discount.PreviousOrder, error) {
	return nil, nil
}

type mockAPIKeyRepo struct {
	key *auth.Key
	err error
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, _ string) (*auth.Key, error) {
	return m.key, m.err
}

// --- Helpers ---

func newTestProduct(id, name string, price decimal.Decimal) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Category: "test",
		Image: product.Image{
			Thumbnail: "thumb.jpg",
			Mobile:    "mobile.jpg",
			Tablet:    "tablet.jpg",
			Desktop:   "desktop.jpg",
		},
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{
		products: products,
		byID:     byID,
	}
}

type testEnv struct {
	mux    *http.ServeMux
	orders *mockOrderRepo
}

func newTestEnv(cfg Config, products *mockProductRepo, catalog *mockCatalog) *testEnv {
	orders := &mockOrderRepo{}
	adjuster := discount.NewAdjuster(discount.NewScopeMatcher(nil), orders)
	svc := order.NewService(products, catalog, adjuster, orders)

	mux := http.NewServeMux()
	New(cfg, products, svc, catalog).Routes(mux, nil)
	return &testEnv{mux: mux, orders: orders}
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10))
	p2 := newTestProduct("p2", "Gadget", decimal.NewFromInt(20))
	env := newTestEnv(Config{ImageBaseURL: "https://cdn.test/"}, newProductRepo(p1, p2), &mockCatalog{})

	rec := env.do(t, http.MethodGet, "/api/product", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Image struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"image"`
	}
	decodeBody(t, rec, &got)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "Widget", got[0].Name)
	assert.Equal(t, "https://cdn.test/thumb.jpg", got[0].Image.Thumbnail)
}

func TestListProducts_Error(t *testing.T) {
	env := newTestEnv(Config{}, &mockProductRepo{listErr: errors.New("db down")}, &mockCatalog{})

	rec := env.do(t, http.MethodGet, "/api/product", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetProduct(t *testing.T) {
	p := newTestProduct("p1", "Widget", decimal.NewFromInt(10))
	env := newTestEnv(Config{}, newProductRepo(p), &mockCatalog{})

	t.Run("found", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/product/p1", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			ID    string  `json:"id"`
			Price float64 `json:"price"`
		}
		decodeBody(t, rec, &got)
		assert.Equal(t, "p1", got.ID)
		assert.Equal(t, 10.0, got.Price)
	})

	t.Run("not found", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/product/missing", "")
		require.Equal(t, http.StatusNotFound, rec.Code)

		var got struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		decodeBody(t, rec, &got)
		assert.Equal(t, http.StatusNotFound, got.Code)
		assert.Equal(t, "product not found", got.Message)
	})
}

func TestPlaceOrder(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	catalog := &mockCatalog{rules: []*discount.Rule{{
		ID:              "r1",
		Name:            "10% off",
		AllGroups:       true,
		PercentDiscount: decimal.RequireFromString("-0.10"),
	}}}
	env := newTestEnv(Config{}, newProductRepo(p1), catalog)

	rec := env.do(t, http.MethodPost, "/api/order",
		`{"items":[{"productId":"p1","quantity":2}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		ID          string  `json:"id"`
		Subtotal    float64 `json:"subtotal"`
		Discount    float64 `json:"discount"`
		Total       float64 `json:"total"`
		Adjustments []struct {
			Type       string  `json:"type"`
			LineItemID string  `json:"lineItemId"`
			Amount     float64 `json:"amount"`
		} `json:"adjustments"`
	}
	decodeBody(t, rec, &got)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 20.0, got.Subtotal)
	assert.Equal(t, -2.0, got.Discount)
	assert.Equal(t, 18.0, got.Total)
	require.Len(t, got.Adjustments, 1)
	assert.Equal(t, "discount", got.Adjustments[0].Type)
	assert.NotEmpty(t, got.Adjustments[0].LineItemID)

	require.NotNil(t, env.orders.lastOrder)
	assert.Equal(t, got.ID, env.orders.lastOrder.ID)
}

func TestPlaceOrder_Errors(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10))
	env := newTestEnv(Config{}, newProductRepo(p1), &mockCatalog{})

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"invalid json", `{"items":`, http.StatusBadRequest},
		{"empty items", `{"items":[]}`, http.StatusBadRequest},
		{"zero quantity", `{"items":[{"productId":"p1","quantity":0}]}`, http.StatusUnprocessableEntity},
		{"unknown product", `{"items":[{"productId":"nope","quantity":1}]}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/order", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Nil(t, env.orders.lastOrder)
		})
	}
}

func TestQuoteOrder_DoesNotPersist(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"))
	env := newTestEnv(Config{}, newProductRepo(p1), &mockCatalog{})

	rec := env.do(t, http.MethodPost, "/api/order/quote",
		`{"items":[{"productId":"p1","quantity":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.orders.lastOrder)
}

func TestListDiscounts(t *testing.T) {
	catalog := &mockCatalog{rules: []*discount.Rule{
		{ID: "r1", Name: "10% off", Code: "TEN", PercentDiscount: decimal.RequireFromString("-0.10")},
		{ID: "r2", Name: "Free shipping", FreeShipping: true},
	}}
	env := newTestEnv(Config{}, newProductRepo(), catalog)

	rec := env.do(t, http.MethodGet, "/api/discount", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []struct {
		ID           string `json:"id"`
		Code         string `json:"code"`
		FreeShipping bool   `json:"freeShipping"`
	}
	decodeBody(t, rec, &got)
	require.Len(t, got, 2)
	assert.Equal(t, "TEN", got[0].Code)
	assert.True(t, got[1].FreeShipping)
}

func TestRequireAPIKey(t *testing.T) {
	const (
		pepper = "test-pepper"
		key    = "secret-key"
	)
	keyHash := auth.HashKey([]byte(pepper), key)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("valid key", func(t *testing.T) {
		sec := NewSecurityHandler(&mockAPIKeyRepo{key: &auth.Key{Hash: keyHash}}, []byte(pepper))

		req := httptest.NewRequest(http.MethodGet, "/api/product", nil)
		req.Header.Set("api_key", key)
		rec := httptest.NewRecorder()
		sec.Require(auth.ScopeCreateOrder)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		sec := NewSecurityHandler(&mockAPIKeyRepo{}, []byte(pepper))

		req := httptest.NewRequest(http.MethodGet, "/api/product", nil)
		rec := httptest.NewRecorder()
		sec.Require(auth.ScopeCreateOrder)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		sec := NewSecurityHandler(&mockAPIKeyRepo{err: errors.New("not found")}, []byte(pepper))

		req := httptest.NewRequest(http.MethodGet, "/api/product", nil)
		req.Header.Set("api_key", "wrong")
		rec := httptest.NewRecorder()
		sec.Require(auth.ScopeCreateOrder)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing scope", func(t *testing.T) {
		scoped := &auth.Key{Hash: keyHash, Scopes: []string{"read_reports"}}
		sec := NewSecurityHandler(&mockAPIKeyRepo{key: scoped}, []byte(pepper))

		req := httptest.NewRequest(http.MethodPost, "/api/order", nil)
		req.Header.Set("api_key", key)
		rec := httptest.NewRecorder()
		sec.Require(auth.ScopeCreateOrder)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
