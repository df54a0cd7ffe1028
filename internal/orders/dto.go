package orders

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Customer identifies the buyer; every field is optional.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Item is one order line. Only lines carrying both ProductID and Tons touch
// the stock ledger.
type Item struct {
	ProductID string
	Material  string
	Quantity  decimal.Decimal
	Tons      decimal.Decimal
	Total     decimal.Decimal
}

// Delivery requests a delivery date in YYYY-MM-DD form.
type Delivery struct {
	Date string
}

// SubmitInput is a yard-sale order submitted from the point of sale.
type SubmitInput struct {
	SourceID    string
	Amount      decimal.Decimal
	Customer    *Customer
	Salesperson string
	Items       []Item
	OrderType   string
	Delivery    *Delivery
}

// Result is returned once the card has been charged.
type Result struct {
	OrderNumber string
	PaymentID   string
	Status      string
	ReceiptURL  string
	CreatedAt   string
}

// State is a step of order processing. Rejections and failures are reported
// with the state the order had reached.
type State string

const (
	StateReceived        State = "received"
	StateStockChecked    State = "stock_checked"
	StateDeliveryChecked State = "delivery_checked"
	StateCharged         State = "charged"
	StateRecorded        State = "recorded"
	StateStockDepleted   State = "stock_depleted"
)

func (i Item) tracked() bool {
	return i.productID() != "" && i.Tons.IsPositive()
}

func (i Item) productID() string {
	return strings.TrimSpace(i.ProductID)
}
