package inventory

import (
	"github.com/shopspring/decimal"
)

// TicketData describes the inbound scale ticket behind a stock increase.
// Empty fields fall back to defaults when the audit row is written.
type TicketData struct {
	Vendor       string
	Material     string
	TicketNumber string
	Truck        string
	Date         string
	CapturedBy   string
}

// SaleData describes a single-product sale logged alongside a decrease.
type SaleData struct {
	Material      string
	Quantity      decimal.Decimal
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Salesperson   string
	PaymentMethod string
	PaymentID     string
}

type IncreaseInput struct {
	ProductID string
	Tons      decimal.Decimal
	Ticket    *TicketData
}

type IncreaseResult struct {
	ProductID string
	Tons      decimal.Decimal
	NewStock  decimal.Decimal
	Message   string
}

type DecreaseInput struct {
	ProductID string
	Tons      decimal.Decimal
	Sale      *SaleData
}

type DecreaseResult struct {
	ProductID     string
	Tons          decimal.Decimal
	PreviousStock decimal.Decimal
	NewStock      decimal.Decimal
	Message       string
}

// LineItem is one product/quantity pair checked before an order is charged.
// Label names the product in shortfall messages; ProductID is used when empty.
type LineItem struct {
	ProductID string
	Label     string
	Tons      decimal.Decimal
}

// Shortfall reports a line item the ledger cannot cover.
type Shortfall struct {
	Product   string
	Available decimal.Decimal
	Requested decimal.Decimal
}
