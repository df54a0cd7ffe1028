package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/yardtrackpro/yardtrack-backend/internal/inventory"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
)

type stubInventoryService struct {
	increase    *inventory.IncreaseInput
	decrease    *inventory.DecreaseInput
	decreaseErr error
}

func (s *stubInventoryService) Increase(ctx context.Context, input inventory.IncreaseInput) (*inventory.IncreaseResult, error) {
	s.increase = &input
	return &inventory.IncreaseResult{
		ProductID: input.ProductID,
		Tons:      input.Tons,
		NewStock:  decimal.RequireFromString("30"),
		Message:   "Added 20 tons to rip-rap",
	}, nil
}

func (s *stubInventoryService) Decrease(ctx context.Context, input inventory.DecreaseInput) (*inventory.DecreaseResult, error) {
	s.decrease = &input
	if s.decreaseErr != nil {
		return nil, s.decreaseErr
	}
	return &inventory.DecreaseResult{
		ProductID:     input.ProductID,
		Tons:          input.Tons,
		PreviousStock: decimal.RequireFromString("30"),
		NewStock:      decimal.RequireFromString("27.5"),
		Message:       "Removed 2.5 tons from rip-rap",
	}, nil
}

func (s *stubInventoryService) Available(ctx context.Context, productID string) (decimal.Decimal, error) {
	return decimal.RequireFromString("12.3456"), nil
}

func TestAdjustInventoryIncrease(t *testing.T) {
	svc := &stubInventoryService{}
	rec := postJSON(AdjustInventory(svc, nil), "/api/v1/inventory", `{
		"action": "increase",
		"productId": "rip-rap",
		"tons": 20,
		"ticketData": {"vendor": "Hanson", "ticketNumber": "T-9"}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["action"] != "increase" || body["tons"] != 20.0 || body["newStock"] != 30.0 {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["previousStock"]; ok {
		t.Fatalf("increase should not report previous stock")
	}
	if svc.increase == nil || svc.increase.Ticket == nil || svc.increase.Ticket.Vendor != "Hanson" {
		t.Fatalf("expected ticket data forwarded, got %+v", svc.increase)
	}
}

func TestAdjustInventoryDecrease(t *testing.T) {
	svc := &stubInventoryService{}
	rec := postJSON(AdjustInventory(svc, nil), "/api/v1/inventory", `{
		"action": "decrease",
		"productId": "rip-rap",
		"tons": 2.5,
		"saleData": {"customer": {"name": "Jane"}, "paymentMethod": "cash"}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["previousStock"] != 30.0 || body["newStock"] != 27.5 {
		t.Fatalf("unexpected body %v", body)
	}
	if svc.decrease.Sale == nil || svc.decrease.Sale.CustomerName != "Jane" {
		t.Fatalf("expected sale data forwarded, got %+v", svc.decrease.Sale)
	}
}

func TestAdjustInventoryInsufficient(t *testing.T) {
	svc := &stubInventoryService{decreaseErr: pkgerrors.New(pkgerrors.CodeInsufficientInventory, "Only 1 tons available").
		WithDetails(map[string]any{"available": 1.0, "requested": 5.0, "message": "Only 1 tons available"})}

	rec := postJSON(AdjustInventory(svc, nil), "/api/v1/inventory", `{"action":"decrease","productId":"rip-rap","tons":5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["error"] != "Insufficient inventory" || body["available"] != 1.0 || body["requested"] != 5.0 {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestAdjustInventoryRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		`{"action":"sell","productId":"rip-rap","tons":1}`: `Invalid action. Use "increase" or "decrease"`,
		`{"action":"increase","productId":"rip-rap"}`:      "Missing required fields: action, productId, tons",
		`{"productId":"rip-rap","tons":1}`:                 "Missing required fields: action, productId, tons",
	}
	for body, want := range cases {
		rec := postJSON(AdjustInventory(&stubInventoryService{}, nil), "/api/v1/inventory", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
		if got := decodeJSON(t, rec)["error"]; got != want {
			t.Fatalf("body %s: expected %q, got %v", body, want, got)
		}
	}
}

func TestGetInventory(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/inventory/{productId}", GetInventory(&stubInventoryService{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/rip-rap", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["productId"] != "rip-rap" || body["currentStock"] != 12.346 {
		t.Fatalf("unexpected body %v", body)
	}
}
