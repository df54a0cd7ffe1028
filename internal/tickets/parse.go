package tickets

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
)

// Fields is the normalized content of one scale ticket.
type Fields struct {
	Vendor       string
	Material     string
	TicketNumber string
	Weight       decimal.Decimal
	Truck        string
	Date         string
}

// firstJSONObject returns the first balanced {...} span in text. Braces inside
// JSON strings are ignored.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// parseFields extracts and normalizes the ticket object from a vision reply.
func parseFields(reply string, today time.Time) (*Fields, error) {
	span, ok := firstJSONObject(reply)
	if !ok {
		return nil, parseError(reply, nil)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, parseError(reply, err)
	}

	fields := &Fields{
		Vendor:       stringField(raw["vendor"]),
		Material:     stringField(raw["material"]),
		TicketNumber: stringField(raw["ticketNumber"]),
		Weight:       weightField(raw["weight"]),
		Truck:        stringField(raw["truck"]),
		Date:         stringField(raw["date"]),
	}
	if fields.Date == "" {
		fields.Date = today.Format("2006-01-02")
	}
	return fields, nil
}

func parseError(reply string, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeExtractionParse, cause, "Failed to parse extracted data").
		WithDetails(map[string]any{"raw": reply})
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+(\.\d+)?|\.\d+)`)

// weightField accepts a JSON number or a string such as "23.4 tons".
// Anything else, including negative values, is zero.
func weightField(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	var text string
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		text = n.String()
	} else if err := json.Unmarshal(raw, &text); err != nil {
		return decimal.Zero
	}

	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	match := leadingNumber.FindString(text)
	if match == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(match)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
