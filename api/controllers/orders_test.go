package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yardtrackpro/yardtrack-backend/internal/orders"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
)

type stubOrderService struct {
	input  orders.SubmitInput
	calls  int
	result *orders.Result
	err    error
}

func (s *stubOrderService) Submit(ctx context.Context, input orders.SubmitInput) (*orders.Result, error) {
	s.calls++
	s.input = input
	return s.result, s.err
}

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestSubmitOrderSuccess(t *testing.T) {
	svc := &stubOrderService{result: &orders.Result{
		OrderNumber: "YTP-20240305-AB12CD34",
		PaymentID:   "pay_1",
		Status:      "COMPLETED",
		ReceiptURL:  "https://squareup.com/receipt/pay_1",
		CreatedAt:   "2024-03-05T14:30:00Z",
	}}

	rec := postJSON(SubmitOrder(svc, nil), "/api/v1/orders", `{
		"sourceId": "cnon:card-nonce-ok",
		"amount": 112.04,
		"customer": {"name": "  Jane Doe ", "email": "jane@example.com"},
		"salesperson": "Mike",
		"items": [{"productId": "rip-rap", "product": "Rip Rap", "tons": 2.5, "total": 112.04}],
		"delivery": {"date": "2024-03-06"}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["success"] != true || body["orderNumber"] != "YTP-20240305-AB12CD34" || body["paymentId"] != "pay_1" {
		t.Fatalf("unexpected body %v", body)
	}

	if svc.input.Amount.String() != "112.04" {
		t.Fatalf("expected amount 112.04, got %s", svc.input.Amount)
	}
	if svc.input.Customer == nil || svc.input.Customer.Name != "Jane Doe" {
		t.Fatalf("expected trimmed customer name, got %+v", svc.input.Customer)
	}
	if len(svc.input.Items) != 1 || svc.input.Items[0].Material != "Rip Rap" {
		t.Fatalf("expected product name used as material, got %+v", svc.input.Items)
	}
	if svc.input.Delivery == nil || svc.input.Delivery.Date != "2024-03-06" {
		t.Fatalf("expected delivery date, got %+v", svc.input.Delivery)
	}
}

func TestSubmitOrderMissingFields(t *testing.T) {
	svc := &stubOrderService{}
	for _, body := range []string{`{"amount": 10}`, `{"sourceId": "cnon:ok"}`, `{}`} {
		rec := postJSON(SubmitOrder(svc, nil), "/api/v1/orders", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
		if got := decodeJSON(t, rec)["error"]; got != "Missing sourceId or amount" {
			t.Fatalf("body %s: unexpected error %v", body, got)
		}
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be called for invalid input")
	}
}

func TestSubmitOrderBadDeliveryDate(t *testing.T) {
	rec := postJSON(SubmitOrder(&stubOrderService{}, nil), "/api/v1/orders",
		`{"sourceId":"cnon:ok","amount":10,"delivery":{"date":"03/06/2024"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeJSON(t, rec)["error"]; got != "delivery date must be YYYY-MM-DD" {
		t.Fatalf("unexpected error %v", got)
	}
}

func TestSubmitOrderInsufficientInventory(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeInsufficientInventory, "Not enough rip-rap").
		WithDetails(map[string]any{
			"items":   []map[string]any{{"product": "rip-rap", "available": 1.0, "requested": 2.5}},
			"message": "Not enough rip-rap",
		})}

	rec := postJSON(SubmitOrder(svc, nil), "/api/v1/orders", `{"sourceId":"cnon:ok","amount":10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["success"] != false || body["error"] != "Insufficient inventory" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["items"]; !ok {
		t.Fatalf("expected shortfall items in body, got %v", body)
	}
}

func TestSubmitOrderPaymentDeclined(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodePaymentDeclined, "Card declined").
		WithDetails(map[string]any{"code": "GENERIC_DECLINE"})}

	rec := postJSON(SubmitOrder(svc, nil), "/api/v1/orders", `{"sourceId":"cnon:ok","amount":10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["error"] != "Card declined" || body["code"] != "GENERIC_DECLINE" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSubmitOrderUnavailable(t *testing.T) {
	rec := postJSON(SubmitOrder(nil, nil), "/api/v1/orders", `{}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decodeJSON(t, rec)["error"]; got != "Internal server error" {
		t.Fatalf("unexpected error %v", got)
	}
}
