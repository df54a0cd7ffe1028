package squarewebhook

import (
	"strings"

	sq "github.com/square/square-go-sdk"
)

const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentUpdated   = "payment.updated"

	statusCompleted = "COMPLETED"
)

// Event is the Square notification envelope for payment events.
type Event struct {
	MerchantID string    `json:"merchant_id"`
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	CreatedAt  string    `json:"created_at"`
	Data       EventData `json:"data"`
}

type EventData struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Object EventObject `json:"object"`
}

type EventObject struct {
	Payment *sq.Payment `json:"payment"`
}

// Key identifies the delivery for redelivery detection. Square always sends
// event_id; the payment id is a fallback for hand-built payloads.
func (e *Event) Key() string {
	if e == nil {
		return ""
	}
	if id := strings.TrimSpace(e.EventID); id != "" {
		return id
	}
	return strings.TrimSpace(e.Data.ID)
}

// confirmsPayment reports whether the event says the payment was captured.
func (e *Event) confirmsPayment() bool {
	if e == nil || e.Data.Object.Payment == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(e.Type)) {
	case EventPaymentCompleted:
		return true
	case EventPaymentUpdated:
		return strings.EqualFold(stringValue(e.Data.Object.Payment.GetStatus()), statusCompleted)
	default:
		return false
	}
}

// isYardSale matches payments created by the point of sale, including the
// legacy "YS-" reference ids.
func isYardSale(payment *sq.Payment) bool {
	if payment == nil {
		return false
	}
	if strings.Contains(stringValue(payment.GetNote()), "Yard Sale") {
		return true
	}
	ref := stringValue(payment.GetReferenceID())
	return strings.HasPrefix(ref, "YTP-") || strings.HasPrefix(ref, "YS-")
}

// parseNote reads the customer and salesperson from a sale note such as
// "YTP Yard Sale | Dana Ruiz | Marco" or the legacy
// "Yard Sale - Dana Ruiz - Marco". The last segment is the salesperson and
// the one before it the customer; the leading tag never counts as either.
func parseNote(note string) (customer, salesperson string) {
	customer, salesperson = defaultCustomer, defaultSalesperson
	sep := " - "
	if strings.Contains(note, "|") {
		sep = " | "
	}
	parts := strings.Split(strings.TrimSpace(note), sep)
	if len(parts) <= 1 {
		return customer, salesperson
	}
	parts = parts[1:]
	if v := strings.TrimSpace(parts[len(parts)-1]); v != "" {
		salesperson = v
	}
	if len(parts) >= 2 {
		if v := strings.TrimSpace(parts[len(parts)-2]); v != "" {
			customer = v
		}
	}
	return customer, salesperson
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
