package normalizer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmountMinor parses a monetary string into integer minor units. Both the
// ERP's Brazilian format ("1.234,56") and the plain format ("1,234.56" or
// "1234.56") are accepted: when both separators appear, the rightmost one is
// the decimal separator; a lone comma is always decimal; a lone dot is decimal
// unless it is followed by exactly three digits, which the ERP uses as a
// thousands group ("1.234" == 1234.00).
func ParseAmountMinor(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, fmt.Errorf("missing required field")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return 0, fmt.Errorf("unparseable amount %q", raw)
		}
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", raw)
	}

	minor := d.Mul(hundred)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than two decimal places", raw)
	}
	return minor.IntPart(), nil
}
