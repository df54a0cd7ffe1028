package enums

import "fmt"

// SaleSource records which write path created a sale record.
type SaleSource string

const (
	SaleSourcePOS       SaleSource = "pos"
	SaleSourceWebhook   SaleSource = "webhook"
	SaleSourceInventory SaleSource = "inventory"
)

var validSaleSources = []SaleSource{
	SaleSourcePOS,
	SaleSourceWebhook,
	SaleSourceInventory,
}

// String implements fmt.Stringer.
func (s SaleSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleSource.
func (s SaleSource) IsValid() bool {
	for _, candidate := range validSaleSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleSource converts raw input into a SaleSource.
func ParseSaleSource(value string) (SaleSource, error) {
	for _, candidate := range validSaleSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale source %q", value)
}
