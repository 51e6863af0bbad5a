package validate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/c360/textann/entity"
)

// reMoney captures an optional currency token before the amount, the amount
// itself (digits with optional group/decimal separators), and an optional
// currency token after it. Exactly one currency token must be present.
var reMoney = regexp.MustCompile(
	`^(?:(?P<pre>[$€£¥₹₺₽₩₴฿]|[A-Z]{3})\s?)?(?P<amt>\d[\d.,\s]*)(?:\s?(?P<post>[$€£¥₹₺₽₩₴฿]|[A-Z]{3}|[a-z]{3,10}))?$`)

// MoneyAmount validates and decomposes a money span into its unnormalized
// currency substring, integer part and fractional part. No currency-code
// normalization is performed; the currency is returned exactly as matched.
func MoneyAmount(raw string) (entity.Entity, bool) {
	m := reMoney.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return entity.Entity{}, false
	}
	pre, amt, post := m[1], strings.TrimSpace(m[2]), m[3]

	currency := pre
	if currency == "" {
		currency = post
	} else if post != "" {
		// Currency on both sides is not a money amount.
		return entity.Entity{}, false
	}
	if currency == "" {
		return entity.Entity{}, false
	}

	integer, fraction, ok := splitAmount(amt)
	if !ok {
		return entity.Entity{}, false
	}
	return entity.NewMoney(entity.MoneyPayload{
		UnnormalizedCurrency: currency,
		IntegerPart:          integer,
		FractionalPart:       fraction,
	}), true
}

// splitAmount decomposes a numeric string with group and decimal separators.
// When both ',' and '.' appear, the later one is the decimal separator. A
// single separator followed by exactly one or two digits is decimal; followed
// by three digits it is a group separator.
func splitAmount(amt string) (integer, fraction int64, ok bool) {
	amt = strings.ReplaceAll(amt, " ", "")
	amt = strings.ReplaceAll(amt, " ", "")
	if amt == "" {
		return 0, 0, false
	}

	lastComma := strings.LastIndexByte(amt, ',')
	lastDot := strings.LastIndexByte(amt, '.')

	decimalIdx := -1
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			decimalIdx = lastComma
		} else {
			decimalIdx = lastDot
		}
	case lastComma >= 0:
		decimalIdx = decimalFor(amt, lastComma, ',')
	case lastDot >= 0:
		decimalIdx = decimalFor(amt, lastDot, '.')
	}

	intPart := amt
	fracPart := ""
	if decimalIdx >= 0 {
		intPart = amt[:decimalIdx]
		fracPart = amt[decimalIdx+1:]
		if fracPart == "" || len(fracPart) > 2 || !isDigits(fracPart) {
			return 0, 0, false
		}
	}

	intDigits := strings.Map(func(r rune) rune {
		if r == ',' || r == '.' {
			return -1
		}
		return r
	}, intPart)
	if !isDigits(intDigits) || len(intDigits) > 18 {
		return 0, 0, false
	}

	integer, err := strconv.ParseInt(intDigits, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if fracPart != "" {
		fraction, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, 0, false
		}
	}
	return integer, fraction, true
}

// decimalFor decides whether the sole separator at idx is a decimal point.
// Returns idx when it is, -1 when it groups thousands.
func decimalFor(amt string, idx int, sep byte) int {
	// Multiple occurrences of the same separator always group thousands.
	if strings.Count(amt, string(sep)) > 1 {
		return -1
	}
	trailing := len(amt) - idx - 1
	if trailing == 3 {
		return -1
	}
	return idx
}
