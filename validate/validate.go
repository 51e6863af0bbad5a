// Package validate implements the deterministic validators of the extraction
// pipeline. Each validator takes the raw matched substring of a candidate and
// either rejects it or produces a canonical structured entity value.
//
// All validators are pure functions: no side effects, no I/O, deterministic,
// and total. A malformed raw span yields a rejection, never an error, since
// scanning inherently produces many non-matching substrings.
//
// All functions are safe for concurrent use by multiple goroutines.
package validate

import (
	"regexp"
	"strings"

	"github.com/c360/textann/entity"
)

// Validate runs the validator for the given entity type against a raw span.
// It returns the canonical entity and true on success, or false when the span
// does not hold a valid structure of that type. DateTime spans are not
// handled here; they go through the datetime disambiguator instead.
func Validate(raw string, t entity.Type) (entity.Entity, bool) {
	switch t {
	case entity.PaymentCard:
		return Card(raw)
	case entity.IBAN:
		return IBANNumber(raw)
	case entity.ISBN:
		return ISBNNumber(raw)
	case entity.TrackingNumber:
		return Tracking(raw)
	case entity.FlightNumber:
		return Flight(raw)
	case entity.Money:
		return MoneyAmount(raw)
	case entity.Address, entity.Email, entity.Phone, entity.URL:
		return simple(raw, t)
	default:
		return entity.Entity{}, false
	}
}

// Patterns for the simple (payload-free) types. These are plausibility
// checks only; the scanner's grammar already shaped the span.
var (
	reEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	reURL   = regexp.MustCompile(`^(https?://)?[A-Za-z0-9\-._~]+\.[A-Za-z]{2,}[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]*$`)
)

// maxEmailLen is the maximum length of an email address per RFC 5321.
const maxEmailLen = 254

func simple(raw string, t entity.Type) (entity.Entity, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return entity.Entity{}, false
	}
	switch t {
	case entity.Email:
		if len(raw) > maxEmailLen || !reEmail.MatchString(raw) {
			return entity.Entity{}, false
		}
	case entity.URL:
		if !reURL.MatchString(raw) {
			return entity.Entity{}, false
		}
	case entity.Phone:
		if digitCount(raw) < 7 {
			return entity.Entity{}, false
		}
	}
	return entity.New(t), true
}

// digitCount returns the number of ASCII digits in s.
func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// cleanDigits strips separator characters commonly found inside structured
// numbers (spaces, dashes, dots) and reports whether the remainder is all
// ASCII digits.
func cleanDigits(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '\u00a0':
			// separator, skip
		default:
			return "", false
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
