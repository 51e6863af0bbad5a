package validate

import (
	"strings"

	"github.com/c360/textann/entity"
)

// ISBNNumber validates a 10 or 13 digit International Standard Book Number.
// The raw span may contain hyphens or spaces between groups and an optional
// "ISBN" prefix. The canonical form is the bare digit string ('X' allowed as
// the final character of the 10-digit form).
func ISBNNumber(raw string) (entity.Entity, bool) {
	canonical := canonicalISBN(raw)
	switch len(canonical) {
	case 10:
		if !isbn10Valid(canonical) {
			return entity.Entity{}, false
		}
	case 13:
		if !isbn13Valid(canonical) {
			return entity.Entity{}, false
		}
	default:
		return entity.Entity{}, false
	}
	return entity.NewISBN(entity.ISBNPayload{ISBN: canonical}), true
}

// canonicalISBN strips an optional "ISBN" / "ISBN-10" / "ISBN-13" prefix and
// all group separators, uppercasing a trailing 'x'.
func canonicalISBN(raw string) string {
	s := strings.TrimSpace(raw)
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"ISBN-13:", "ISBN-10:", "ISBN-13", "ISBN-10", "ISBN:", "ISBN"} {
		if strings.HasPrefix(upper, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'X' || r == 'x':
			b.WriteRune('X')
		case r == '-' || r == ' ':
			// group separator, skip
		default:
			return ""
		}
	}
	return b.String()
}

// isbn10Valid checks the weighted sum with weights 10..1 mod 11. 'X' stands
// for the value 10 and is only legal in the final position.
func isbn10Valid(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		var v int
		switch {
		case s[i] >= '0' && s[i] <= '9':
			v = int(s[i] - '0')
		case s[i] == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

// isbn13Valid checks the alternating 1,3 weighted sum mod 10.
func isbn13Valid(s string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		v := int(s[i] - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}
