package validate

import (
	"regexp"
	"strings"

	"github.com/c360/textann/entity"
)

// CarrierRule describes one carrier's tracking-number grammar plus an
// optional checksum over the canonical code. Rules are data, not pipeline
// logic: correcting a carrier's format means editing this table only.
type CarrierRule struct {
	Carrier  entity.Carrier
	Pattern  *regexp.Regexp
	Checksum func(code string) bool // nil when the carrier defines none
}

// carrierRules is evaluated in order; the first grammar (and checksum) match
// wins. Specific carriers precede the generic fallback.
var carrierRules = []CarrierRule{
	{entity.CarrierUPS, regexp.MustCompile(`^1Z[A-Z0-9]{16}$`), upsChecksum},
	{entity.CarrierFedEx, regexp.MustCompile(`^\d{12}$`), fedexChecksum},
	{entity.CarrierFedEx, regexp.MustCompile(`^\d{15}$`), nil},
	{entity.CarrierDHL, regexp.MustCompile(`^\d{10}$`), dhlChecksum},
	{entity.CarrierUSPS, regexp.MustCompile(`^9[2345]\d{20}$`), uspsChecksum},
	{entity.CarrierUSPS, regexp.MustCompile(`^9[2345]\d{24}$`), uspsChecksum},
	{entity.CarrierOntrac, regexp.MustCompile(`^[CD]\d{14}$`), nil},
	{entity.CarrierLasership, regexp.MustCompile(`^(1LS\d{12}|L[A-Z]\d{8})$`), nil},
	{entity.CarrierIsraelPost, regexp.MustCompile(`^[A-Z]{2}\d{9}IL$`), s10Checksum},
	{entity.CarrierSwissPost, regexp.MustCompile(`^[A-Z]{2}\d{9}CH$`), s10Checksum},
	{entity.CarrierSwissPost, regexp.MustCompile(`^99\d{16}$`), nil},
	{entity.CarrierMSC, regexp.MustCompile(`^(MEDU|MSCU)\d{7}$`), containerChecksum},
	{entity.CarrierAmazon, regexp.MustCompile(`^TBA\d{12}$`), nil},
	{entity.CarrierIParcel, regexp.MustCompile(`^IPAR\d{10}$`), nil},
}

// reGenericTracking is the fallback grammar: a long alphanumeric code with a
// substantial digit run. A match yields CarrierUnknown.
var reGenericTracking = regexp.MustCompile(`^[A-Z0-9]{10,30}$`)

// minGenericDigits is the minimum digit count for the generic fallback.
const minGenericDigits = 8

// Tracking validates a shipment tracking number. The raw span may contain
// spaces between groups. Each known carrier's grammar (and checksum, where
// the carrier defines one) is tried in order; CarrierUnknown is only emitted
// when no known carrier matches but the generic grammar does.
func Tracking(raw string) (entity.Entity, bool) {
	canonical := canonicalTracking(raw)
	if canonical == "" {
		return entity.Entity{}, false
	}

	for _, rule := range carrierRules {
		if !rule.Pattern.MatchString(canonical) {
			continue
		}
		if rule.Checksum != nil && !rule.Checksum(canonical) {
			continue
		}
		return entity.NewTrackingNumber(entity.TrackingNumberPayload{
			Carrier: rule.Carrier,
			Number:  canonical,
		}), true
	}

	if reGenericTracking.MatchString(canonical) && digitCount(canonical) >= minGenericDigits {
		return entity.NewTrackingNumber(entity.TrackingNumberPayload{
			Carrier: entity.CarrierUnknown,
			Number:  canonical,
		}), true
	}
	return entity.Entity{}, false
}

// canonicalTracking uppercases and strips spaces. Any other non-alphanumeric
// character invalidates the span.
func canonicalTracking(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r == ' ':
			// group separator, skip
		default:
			return ""
		}
	}
	return b.String()
}

// upsChecksum verifies the UPS mod-10 weighted sum. The 15 characters after
// the "1Z" prefix are weighted with an alternating 1,2 cycle (letters map to
// (ASCII-63) mod 10) and the final character is the check digit.
func upsChecksum(code string) bool {
	body := code[2 : len(code)-1]
	check := int(code[len(code)-1] - '0')
	sum := 0
	for i := 0; i < len(body); i++ {
		var v int
		c := body[i]
		if c >= '0' && c <= '9' {
			v = int(c - '0')
		} else {
			v = (int(c) - 63) % 10
		}
		if i%2 == 1 {
			v *= 2
		}
		sum += v
	}
	expected := (10 - sum%10) % 10
	return check == expected
}

// fedexChecksum verifies the FedEx Express 12-digit check: digits 1..11 are
// weighted with the repeating cycle 1,3,7 and the sum mod 11 mod 10 must
// equal the final digit.
func fedexChecksum(code string) bool {
	weights := [3]int{1, 3, 7}
	sum := 0
	for i := 0; i < 11; i++ {
		sum += int(code[i]-'0') * weights[i%3]
	}
	return sum%11%10 == int(code[11]-'0')
}

// dhlChecksum verifies the DHL Express 10-digit check: the first nine digits
// interpreted as a number mod 7 must equal the final digit.
func dhlChecksum(code string) bool {
	rem := 0
	for i := 0; i < 9; i++ {
		rem = (rem*10 + int(code[i]-'0')) % 7
	}
	return rem == int(code[9]-'0')
}

// uspsChecksum verifies the USPS mod-10 check: digits in odd positions from
// the right (excluding the check digit) are tripled, the rest added as-is,
// and the check digit is what brings the total to a multiple of 10.
func uspsChecksum(code string) bool {
	check := int(code[len(code)-1] - '0')
	sum := 0
	triple := true
	for i := len(code) - 2; i >= 0; i-- {
		v := int(code[i] - '0')
		if triple {
			v *= 3
		}
		sum += v
		triple = !triple
	}
	return (sum+check)%10 == 0
}

// s10Checksum verifies the UPU S10 check digit used by postal carriers:
// the eight serial digits are weighted 8,6,4,2,3,5,9,7 and the check digit
// is 11 - (sum mod 11), with 10 mapping to 0 and 11 mapping to 5.
func s10Checksum(code string) bool {
	serial := code[2:10]
	check := int(code[10] - '0')
	weights := [8]int{8, 6, 4, 2, 3, 5, 9, 7}
	sum := 0
	for i := 0; i < 8; i++ {
		sum += int(serial[i]-'0') * weights[i]
	}
	expected := 11 - sum%11
	switch expected {
	case 10:
		expected = 0
	case 11:
		expected = 5
	}
	return check == expected
}

// containerLetterValues maps A-Z to their ISO 6346 numeric values, which
// skip multiples of 11 (no letter maps to 11, 22 or 33).
var containerLetterValues = [26]int{
	10, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 23, 24,
	25, 26, 27, 28, 29, 30, 31, 32, 34, 35, 36, 37, 38,
}

// containerChecksum verifies the ISO 6346 container check digit used for MSC
// container codes: the four owner letters and six serial digits are weighted
// by powers of two and reduced mod 11 (a result of 10 wraps to 0).
func containerChecksum(code string) bool {
	if len(code) != 11 {
		return false
	}
	sum := 0
	weight := 1
	for i := 0; i < 10; i++ {
		var v int
		c := code[i]
		if c >= '0' && c <= '9' {
			v = int(c - '0')
		} else {
			v = containerLetterValues[c-'A']
		}
		sum += v * weight
		weight *= 2
	}
	expected := sum % 11 % 10
	return expected == int(code[10]-'0')
}
