package enums

import "testing"

func TestParseStockAction(t *testing.T) {
	action, err := ParseStockAction("decrease")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != StockActionDecrease {
		t.Fatalf("expected decrease, got %s", action)
	}
	if _, err := ParseStockAction("sell"); err == nil {
		t.Fatal("expected invalid action error")
	}
}

func TestSalePaymentStatusFromSquare(t *testing.T) {
	cases := map[string]SalePaymentStatus{
		"COMPLETED": SalePaymentStatusCompleted,
		"approved":  SalePaymentStatusCompleted,
		"PENDING":   SalePaymentStatusPending,
		"FAILED":    SalePaymentStatusPending,
		"":          SalePaymentStatusPending,
	}
	for raw, want := range cases {
		if got := SalePaymentStatusFromSquare(raw); got != want {
			t.Fatalf("status %q: expected %s got %s", raw, want, got)
		}
	}
}

func TestBookingStatusIsValid(t *testing.T) {
	if !BookingStatusCancelled.IsValid() {
		t.Fatal("cancelled should be valid")
	}
	if BookingStatus("lost").IsValid() {
		t.Fatal("unknown status should be invalid")
	}
}
