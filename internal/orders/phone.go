package orders

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

const defaultPhoneRegion = "US"

// normalizePhone returns the E.164 form of a parseable number and the
// trimmed input otherwise.
func normalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	num, err := libphonenumber.Parse(trimmed, defaultPhoneRegion)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return trimmed
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}
