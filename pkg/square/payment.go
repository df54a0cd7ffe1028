package square

import (
	"context"

	sq "github.com/square/square-go-sdk"
)

// PaymentResult is the subset of a Square payment the order flow records.
type PaymentResult struct {
	ID         string
	Status     string
	ReceiptURL string
	CreatedAt  string
	LocationID string
}

// Charge creates an autocompleted card payment and summarizes it.
func (c *Client) Charge(ctx context.Context, params PaymentCreateParams) (*PaymentResult, error) {
	payment, err := c.CreatePayment(ctx, params)
	if err != nil {
		return nil, err
	}
	return summarizePayment(payment), nil
}

func summarizePayment(payment *sq.Payment) *PaymentResult {
	if payment == nil {
		return &PaymentResult{}
	}
	return &PaymentResult{
		ID:         stringValue(payment.GetID()),
		Status:     stringValue(payment.GetStatus()),
		ReceiptURL: stringValue(payment.GetReceiptURL()),
		CreatedAt:  stringValue(payment.GetCreatedAt()),
		LocationID: stringValue(payment.GetLocationID()),
	}
}
