package scanner

import (
	"context"
	"regexp"
	"strings"

	"github.com/c360/textann/entity"
	"github.com/c360/textann/model"
)

// Candidate patterns per entity type. Patterns deliberately over-generate:
// validation and canonicalization happen downstream, so a pattern only has
// to be loose enough never to miss a real entity. The same substring may be
// proposed under several types; the assembler keeps them as competing
// interpretations.
var (
	reScanURL = regexp.MustCompile(`(?:https?://|www\.)[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+`)

	reScanEmail = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// International with country code, and North-American style local forms.
	reScanPhoneIntl  = regexp.MustCompile(`\+\d{1,3}[ .\-]?\(?\d{1,4}\)?(?:[ .\-]?\d{2,4}){2,4}`)
	reScanPhoneLocal = regexp.MustCompile(`\(?\d{3}\)?[ .\-]\d{3}[ .\-]\d{4}\b`)

	// Two letters, two check digits, 11-30 BBAN characters, optional spacing.
	reScanIBAN = regexp.MustCompile(`\b[A-Z]{2}\d{2}(?: ?[A-Z0-9]){11,30}\b`)

	// Optional ISBN label and 978/979 prefix, hyphen or space separators.
	reScanISBN = regexp.MustCompile(`\b(?:ISBN[:\- ]{0,2})?\d[\d\- ]{8,15}[\dXx]\b`)

	reScanMoney = regexp.MustCompile(
		`(?:[$€£¥₹]\s?\d[\d.,]*|\d[\d.,]*\s?(?:[$€£¥₹]|[A-Z]{3}\b|dollars?\b|cents?\b|euros?\b|pounds?\b))`)

	// 12-19 digits with optional single space or dash separators.
	reScanCard = regexp.MustCompile(`\b\d(?:[ \-]?\d){11,18}\b`)

	reScanTrackingUPS       = regexp.MustCompile(`\b1Z ?[A-Z0-9]{3} ?[A-Z0-9]{3} ?[A-Z0-9]{2} ?[A-Z0-9]{4} ?[A-Z0-9]{3} ?[A-Z0-9]\b`)
	reScanTrackingS10       = regexp.MustCompile(`\b[A-Z]{2}\d{9}[A-Z]{2}\b`)
	reScanTrackingContainer = regexp.MustCompile(`\b[A-Z]{4}\d{7}\b`)
	reScanTrackingDigits    = regexp.MustCompile(`\b\d{8,22}\b`)

	reScanFlight = regexp.MustCompile(`\b[A-Z]{2,3} ?\d{1,4}\b`)

	reScanDateISO = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?Z?)?`)
	reScanDateNum = regexp.MustCompile(`\b\d{1,2}[/.]\d{1,2}[/.]\d{2,4}\b`)
	reScanDateMon = regexp.MustCompile(
		`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.? \d{1,2}(?:st|nd|rd|th)?(?:,? \d{4})?\b`)
	reScanDateRel = regexp.MustCompile(
		`(?i)\b(?:today|tomorrow|yesterday|tonight|(?:next|last) (?:week|month|year|monday|tuesday|wednesday|thursday|friday|saturday|sunday)|in \d+ (?:minutes?|hours?|days?|weeks?|months?))\b`)
	reScanTime = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?(?: ?[APap]\.?[Mm]\.?)?\b`)
	reScanYear = regexp.MustCompile(`\b(?:1[6-9]\d{2}|2[0-2]\d{2})\b`)

	reScanAddress = regexp.MustCompile(
		`\b\d{1,5} [A-Z][a-z]+(?: [A-Z][a-z]+){0,3} (?:St(?:reet)?|Ave(?:nue)?|Blvd|Boulevard|Rd|Road|Dr(?:ive)?|Lane|Ln|Way|Court|Ct|Plaza|Square|Terrace)\b\.?`)
)

// rulePattern binds one regex to the type and confidence of the candidates
// it produces.
type rulePattern struct {
	typ        entity.Type
	re         *regexp.Regexp
	confidence float64
}

// rulePatterns lists patterns most-specific first within each type. The
// confidence reflects pattern specificity, not certainty: downstream
// validators have the final word for structured types.
var rulePatterns = []rulePattern{
	{entity.URL, reScanURL, 0.95},
	{entity.Email, reScanEmail, 0.95},
	{entity.IBAN, reScanIBAN, 0.90},
	{entity.ISBN, reScanISBN, 0.80},
	{entity.Address, reScanAddress, 0.75},
	{entity.Phone, reScanPhoneIntl, 0.85},
	{entity.Phone, reScanPhoneLocal, 0.75},
	{entity.Money, reScanMoney, 0.85},
	{entity.PaymentCard, reScanCard, 0.70},
	{entity.TrackingNumber, reScanTrackingUPS, 0.90},
	{entity.TrackingNumber, reScanTrackingS10, 0.80},
	{entity.TrackingNumber, reScanTrackingContainer, 0.80},
	{entity.TrackingNumber, reScanTrackingDigits, 0.55},
	{entity.FlightNumber, reScanFlight, 0.60},
	{entity.DateTime, reScanDateISO, 0.90},
	{entity.DateTime, reScanDateNum, 0.80},
	{entity.DateTime, reScanDateMon, 0.85},
	{entity.DateTime, reScanDateRel, 0.85},
	{entity.DateTime, reScanTime, 0.70},
	{entity.DateTime, reScanYear, 0.50},
}

// maxCandidates bounds the number of candidates returned per call.
const maxCandidates = 10000

// RuleScanner is a deterministic regex-backed scanning backend. It covers
// every entity type well enough to run the pipeline end-to-end and serves
// as the reference implementation of the Scanner contract.
type RuleScanner struct {
	gate func(model.Identifier) error
}

// RuleScannerOption configures a RuleScanner.
type RuleScannerOption func(*RuleScanner)

// WithAvailabilityGate makes Scan fail when gate returns an error for the
// requested language, mirroring a backend whose model may not be loaded.
func WithAvailabilityGate(gate func(model.Identifier) error) RuleScannerOption {
	return func(s *RuleScanner) { s.gate = gate }
}

// NewRuleScanner creates a RuleScanner.
func NewRuleScanner(opts ...RuleScannerOption) *RuleScanner {
	s := &RuleScanner{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan proposes candidates for every type in filter. Candidates may overlap
// both within and across types; no overlap resolution happens here.
func (s *RuleScanner) Scan(ctx context.Context, text string, lang model.Identifier, filter entity.TypeSet) ([]Candidate, error) {
	if s.gate != nil {
		if err := s.gate(lang); err != nil {
			return nil, err
		}
	}
	if text == "" {
		return nil, nil
	}

	const minCap = 8
	candidates := make([]Candidate, 0, len(text)/200+minCap)

	for _, p := range rulePatterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !filter.Contains(p.typ) {
			continue
		}
		for _, m := range p.re.FindAllStringIndex(text, -1) {
			raw := text[m[0]:m[1]]
			end := m[1]
			if p.typ == entity.URL {
				trimmed := strings.TrimRight(raw, ".,;:!?)]}>")
				if trimmed == "" {
					continue
				}
				end = m[0] + len(trimmed)
				raw = trimmed
			}
			candidates = append(candidates, Candidate{
				Start:      m[0],
				Length:     end - m[0],
				Type:       p.typ,
				Raw:        raw,
				Confidence: p.confidence,
			})
			if len(candidates) >= maxCandidates {
				return candidates, nil
			}
		}
	}

	return candidates, nil
}
