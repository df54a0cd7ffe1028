package enums

import (
	"fmt"
	"strings"
)

// SalePaymentStatus mirrors the provider payment state on a sale record.
type SalePaymentStatus string

const (
	SalePaymentStatusPending   SalePaymentStatus = "pending"
	SalePaymentStatusCompleted SalePaymentStatus = "completed"
)

var validSalePaymentStatuses = []SalePaymentStatus{
	SalePaymentStatusPending,
	SalePaymentStatusCompleted,
}

// String implements fmt.Stringer.
func (s SalePaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SalePaymentStatus.
func (s SalePaymentStatus) IsValid() bool {
	for _, candidate := range validSalePaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSalePaymentStatus converts raw input into a SalePaymentStatus.
func ParseSalePaymentStatus(value string) (SalePaymentStatus, error) {
	for _, candidate := range validSalePaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale payment status %q", value)
}

// SalePaymentStatusFromSquare maps a Square payment status onto the sale
// record. COMPLETED and APPROVED count as collected; anything else stays pending.
func SalePaymentStatusFromSquare(status string) SalePaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "COMPLETED", "APPROVED":
		return SalePaymentStatusCompleted
	default:
		return SalePaymentStatusPending
	}
}
