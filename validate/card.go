package validate

import (
	"strconv"

	"github.com/c360/textann/entity"
)

// networkRule describes one payment network's prefix and length constraints.
// Prefixes are inclusive numeric ranges compared against the leading digits
// of the card number at the range's digit width.
type networkRule struct {
	network  entity.CardNetwork
	prefixes []prefixRange
	minLen   int
	maxLen   int
}

type prefixRange struct {
	lo, hi int
}

// width returns the number of digits in the range bounds.
func (p prefixRange) width() int {
	return len(strconv.Itoa(p.hi))
}

// networkRules is checked in order: longer, more specific prefixes come
// before shorter generic ones so that e.g. Mir (2200-2204) wins over the
// Mastercard 2-series and Discover's 622 block wins over UnionPay's 62.
var networkRules = []networkRule{
	{entity.CardNetworkAmex, []prefixRange{{34, 34}, {37, 37}}, 15, 15},
	{entity.CardNetworkDinersClub, []prefixRange{{300, 305}, {36, 36}, {38, 39}}, 14, 19},
	{entity.CardNetworkJCB, []prefixRange{{3528, 3589}}, 16, 19},
	{entity.CardNetworkMaestro, []prefixRange{{5018, 5018}, {5020, 5020}, {5038, 5038}, {5893, 5893}, {6304, 6304}, {6759, 6759}, {6761, 6763}}, 12, 19},
	{entity.CardNetworkMir, []prefixRange{{2200, 2204}}, 16, 19},
	{entity.CardNetworkTroy, []prefixRange{{9792, 9792}}, 16, 16},
	{entity.CardNetworkDiscover, []prefixRange{{622126, 622925}, {6011, 6011}, {644, 649}, {65, 65}}, 16, 19},
	{entity.CardNetworkInterPayment, []prefixRange{{636, 636}}, 16, 19},
	{entity.CardNetworkMastercard, []prefixRange{{2221, 2720}, {51, 55}}, 16, 16},
	{entity.CardNetworkUnionpay, []prefixRange{{62, 62}}, 16, 19},
	{entity.CardNetworkVisa, []prefixRange{{4, 4}}, 13, 19},
}

const (
	minCardDigits = 12
	maxCardDigits = 19
)

// Card validates a payment card number. The raw span may contain spaces,
// dashes or dots as separators. Validity requires the Luhn checksum; the
// network is then selected from the prefix table, falling back to
// CardNetworkUnknown when no rule matches a Luhn-valid number.
func Card(raw string) (entity.Entity, bool) {
	digits, ok := cleanDigits(raw)
	if !ok {
		return entity.Entity{}, false
	}
	if len(digits) < minCardDigits || len(digits) > maxCardDigits {
		return entity.Entity{}, false
	}
	if !Luhn(digits) {
		return entity.Entity{}, false
	}
	return entity.NewPaymentCard(entity.PaymentCardPayload{
		Network: matchNetwork(digits),
		Number:  digits,
	}), true
}

// Luhn reports whether a digit string satisfies the Luhn checksum: every
// second digit from the right is doubled and digit-summed, and the total
// must be divisible by 10.
func Luhn(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// matchNetwork returns the first network whose prefix and length rules match.
func matchNetwork(digits string) entity.CardNetwork {
	for _, rule := range networkRules {
		if len(digits) < rule.minLen || len(digits) > rule.maxLen {
			continue
		}
		for _, pr := range rule.prefixes {
			w := pr.width()
			if len(digits) < w {
				continue
			}
			lead, err := strconv.Atoi(digits[:w])
			if err != nil {
				continue
			}
			if lead >= pr.lo && lead <= pr.hi {
				return rule.network
			}
		}
	}
	return entity.CardNetworkUnknown
}
