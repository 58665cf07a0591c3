//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

const testAPIKey = "integration-test-key"

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestPlaceOrder_NoAuth(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: "1", Quantity: 1}},
	}
	resp := doPost(t, "/api/order", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InvalidKey(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: "1", Quantity: 1}},
	}
	resp := doPostWithAuth(t, "/api/order", req, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{},
	}
	resp := doPostWithAuth(t, "/api/order", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InvalidProduct(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: "999", Quantity: 1}},
	}
	resp := doPostWithAuth(t, "/api/order", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_SingleItem(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: "5", Quantity: 1}}, // Baklava $4.00
	}
	resp := doPostWithAuth(t, "/api/order", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Total != 4 {
		t.Errorf("total: got %v, want 4", order.Total)
	}
	if order.Discount != 0 {
		t.Errorf("discount: got %v, want 0", order.Discount)
	}
}

func TestPlaceOrder_HappyHours(t *testing.T) {
	req := orderRequest{
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 1}}, // Waffle $6.50
		CouponCode: "HAPPYHOURS",
	}
	resp := doPostWithAuth(t, "/api/order", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	// 6.50 * -18% = -1.17
	if order.Discount != -1.17 {
		t.Errorf("discount: got %v, want -1.17", order.Discount)
	}
	if order.Total != 5.33 {
		t.Errorf("total: got %v, want 5.33", order.Total)
	}
	if len(order.Adjustments) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(order.Adjustments))
	}
	if order.Adjustments[0].LineItemID == "" {
		t.Error("adjustment lineItemId is empty")
	}
}

func TestPlaceOrder_CouponCaseInsensitive(t *testing.T) {
	req := orderRequest{
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 1}},
		CouponCode: "happyhours",
	}
	resp := doPostWithAuth(t, "/api/order", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Discount != -1.17 {
		t.Errorf("discount: got %v, want -1.17", order.Discount)
	}
}

func TestPlaceOrder_UnknownCouponIgnored(t *testing.T) {
	req := orderRequest{
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 1}},
		CouponCode: "NONEXISTENT",
	}
	resp := doPostWithAuth(t, "/api/order", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Discount != 0 {
		t.Errorf("discount: got %v, want 0", order.Discount)
	}
	if order.Total != 6.5 {
		t.Errorf("total: got %v, want 6.5", order.Total)
	}
}

func TestPlaceOrder_WelcomeOncePerEmail(t *testing.T) {
	req := orderRequest{
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 1}}, // Waffle $6.50
		CouponCode: "WELCOME",
		Email:      "welcome@example.com",
	}

	// First use: 25% off.
	resp := doPostWithAuth(t, "/api/order", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	first := decodeJSON[orderResponse](t, resp)
	if first.Discount != -1.63 {
		t.Errorf("first order discount: got %v, want -1.63", first.Discount)
	}

	// Second use with the same email: limit reached, no discount.
	resp2 := doPostWithAuth(t, "/api/order", req, testAPIKey)
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp2.StatusCode)
	}

	second := decodeJSON[orderResponse](t, resp2)
	if second.Discount != 0 {
		t.Errorf("second order discount: got %v, want 0", second.Discount)
	}
}

func TestPlaceOrder_ClearanceHaltsStacking(t *testing.T) {
	req := orderRequest{
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 1}}, // Waffle $6.50
		CouponCode: "CLEARANCE",
	}
	resp := doPostWithAuth(t, "/api/order", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	// Half price on the scoped waffle, nothing stacked after it.
	if order.Discount != -3.25 {
		t.Errorf("discount: got %v, want -3.25", order.Discount)
	}
	if order.Total != 3.25 {
		t.Errorf("total: got %v, want 3.25", order.Total)
	}
	if len(order.Adjustments) != 1 {
		t.Errorf("expected 1 adjustment, got %d", len(order.Adjustments))
	}
}

func TestQuoteOrder(t *testing.T) {
	req := orderRequest{
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 2}},
		CouponCode: "HAPPYHOURS",
	}
	resp := doPostWithAuth(t, "/api/order/quote", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[orderResponse](t, resp)
	// 13.00 * -18% = -2.34
	if quote.Discount != -2.34 {
		t.Errorf("discount: got %v, want -2.34", quote.Discount)
	}
	if quote.Total != 10.66 {
		t.Errorf("total: got %v, want 10.66", quote.Total)
	}
}

func TestPlaceOrder_ResponseStructure(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: "1", Quantity: 1}},
	}
	resp := doPostWithAuth(t, "/api/order", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)

	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a valid UUID", order.ID)
	}
	if order.Subtotal != 6.5 {
		t.Errorf("subtotal: got %v, want 6.5", order.Subtotal)
	}
	if len(order.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(order.Items))
	}
	if len(order.Products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(order.Products))
	}

	product := order.Products[0]
	if product.ID != "1" {
		t.Errorf("product id: got %q, want %q", product.ID, "1")
	}
	if product.Name == "" {
		t.Error("product name is empty")
	}
	if product.Price <= 0 {
		t.Errorf("product price: got %v, want > 0", product.Price)
	}
}
