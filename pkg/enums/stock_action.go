package enums

import "fmt"

// StockAction is the direction of a stock ledger adjustment.
type StockAction string

const (
	StockActionIncrease StockAction = "increase"
	StockActionDecrease StockAction = "decrease"
)

var validStockActions = []StockAction{
	StockActionIncrease,
	StockActionDecrease,
}

// String implements fmt.Stringer.
func (s StockAction) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockAction.
func (s StockAction) IsValid() bool {
	for _, candidate := range validStockActions {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockAction converts raw input into a StockAction.
func ParseStockAction(value string) (StockAction, error) {
	for _, candidate := range validStockActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock action %q", value)
}
