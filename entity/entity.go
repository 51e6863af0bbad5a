package entity

import (
	"fmt"
	"time"
)

// Granularity is the precision of a timestamp extracted from text.
// For example, "tomorrow" has day granularity while "12:51" has minute
// granularity. Values are totally ordered by precision.
type Granularity int

const (
	GranularityUnknown Granularity = iota
	GranularityYear
	GranularityMonth
	GranularityWeek
	GranularityDay
	GranularityHour
	GranularityMinute
	GranularitySecond
)

var granularityNames = [...]string{
	GranularityUnknown: "unknown",
	GranularityYear:    "year",
	GranularityMonth:   "month",
	GranularityWeek:    "week",
	GranularityDay:     "day",
	GranularityHour:    "hour",
	GranularityMinute:  "minute",
	GranularitySecond:  "second",
}

// String returns the name of the granularity.
func (g Granularity) String() string {
	if int(g) >= 0 && int(g) < len(granularityNames) {
		return granularityNames[g]
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// CardNetwork identifies the payment network of a detected card number.
type CardNetwork int

const (
	CardNetworkUnknown CardNetwork = iota
	CardNetworkAmex
	CardNetworkDinersClub
	CardNetworkDiscover
	CardNetworkInterPayment
	CardNetworkJCB
	CardNetworkMaestro
	CardNetworkMastercard
	CardNetworkMir
	CardNetworkTroy
	CardNetworkUnionpay
	CardNetworkVisa
)

var cardNetworkNames = [...]string{
	CardNetworkUnknown:      "unknown",
	CardNetworkAmex:         "amex",
	CardNetworkDinersClub:   "diners_club",
	CardNetworkDiscover:     "discover",
	CardNetworkInterPayment: "interpayment",
	CardNetworkJCB:          "jcb",
	CardNetworkMaestro:      "maestro",
	CardNetworkMastercard:   "mastercard",
	CardNetworkMir:          "mir",
	CardNetworkTroy:         "troy",
	CardNetworkUnionpay:     "unionpay",
	CardNetworkVisa:         "visa",
}

// String returns the name of the card network.
func (n CardNetwork) String() string {
	if int(n) >= 0 && int(n) < len(cardNetworkNames) {
		return cardNetworkNames[n]
	}
	return fmt.Sprintf("CardNetwork(%d)", int(n))
}

// Carrier identifies the parcel carrier of a detected tracking number.
type Carrier int

const (
	CarrierUnknown Carrier = iota
	CarrierFedEx
	CarrierUPS
	CarrierDHL
	CarrierUSPS
	CarrierOntrac
	CarrierLasership
	CarrierIsraelPost
	CarrierSwissPost
	CarrierMSC
	CarrierAmazon
	CarrierIParcel
)

var carrierNames = [...]string{
	CarrierUnknown:    "unknown",
	CarrierFedEx:      "fedex",
	CarrierUPS:        "ups",
	CarrierDHL:        "dhl",
	CarrierUSPS:       "usps",
	CarrierOntrac:     "ontrac",
	CarrierLasership:  "lasership",
	CarrierIsraelPost: "israel_post",
	CarrierSwissPost:  "swiss_post",
	CarrierMSC:        "msc",
	CarrierAmazon:     "amazon",
	CarrierIParcel:    "iparcel",
}

// String returns the name of the carrier.
func (c Carrier) String() string {
	if int(c) >= 0 && int(c) < len(carrierNames) {
		return carrierNames[c]
	}
	return fmt.Sprintf("Carrier(%d)", int(c))
}

// DateTimePayload is the structured value of a DateTime entity: a resolved
// absolute instant plus the precision the source text expressed.
type DateTimePayload struct {
	Time        time.Time   `json:"time"`
	Granularity Granularity `json:"granularity"`
}

// FlightNumberPayload is a flight number split into its IATA airline
// designator (two or three letters) and its 1-4 digit number.
type FlightNumberPayload struct {
	AirlineCode  string `json:"airline_code"`
	FlightNumber string `json:"flight_number"`
}

// IBANPayload is a canonical IBAN (uppercase, no separators) and its ISO
// 3166-1 alpha-2 country code.
type IBANPayload struct {
	IBAN        string `json:"iban"`
	CountryCode string `json:"country_code"`
}

// ISBNPayload is a canonical 10 or 13 digit ISBN.
type ISBNPayload struct {
	ISBN string `json:"isbn"`
}

// MoneyPayload is a detected money amount. The currency is the unnormalized
// substring from the source text; no currency-code mapping is performed.
type MoneyPayload struct {
	UnnormalizedCurrency string `json:"unnormalized_currency"`
	IntegerPart          int64  `json:"integer_part"`
	FractionalPart       int64  `json:"fractional_part"`
}

// PaymentCardPayload is a canonical card number and its detected network.
type PaymentCardPayload struct {
	Network CardNetwork `json:"network"`
	Number  string      `json:"number"`
}

// TrackingNumberPayload is a canonical tracking code and its detected carrier.
type TrackingNumberPayload struct {
	Carrier Carrier `json:"carrier"`
	Number  string  `json:"number"`
}

// Entity is one typed interpretation of a text span. Exactly one payload is
// populated, selected by the type tag; types without structured payloads
// (Address, Email, Phone, URL) carry none. Use the New* constructors so the
// single-payload invariant holds.
type Entity struct {
	entityType Type

	dateTime       *DateTimePayload
	flightNumber   *FlightNumberPayload
	iban           *IBANPayload
	isbn           *ISBNPayload
	money          *MoneyPayload
	paymentCard    *PaymentCardPayload
	trackingNumber *TrackingNumberPayload
}

// New creates an entity of a type with no structured payload
// (Address, Email, Phone, URL).
func New(t Type) Entity {
	return Entity{entityType: t}
}

// NewDateTime creates a DateTime entity.
func NewDateTime(p DateTimePayload) Entity {
	return Entity{entityType: DateTime, dateTime: &p}
}

// NewFlightNumber creates a FlightNumber entity.
func NewFlightNumber(p FlightNumberPayload) Entity {
	return Entity{entityType: FlightNumber, flightNumber: &p}
}

// NewIBAN creates an IBAN entity.
func NewIBAN(p IBANPayload) Entity {
	return Entity{entityType: IBAN, iban: &p}
}

// NewISBN creates an ISBN entity.
func NewISBN(p ISBNPayload) Entity {
	return Entity{entityType: ISBN, isbn: &p}
}

// NewMoney creates a Money entity.
func NewMoney(p MoneyPayload) Entity {
	return Entity{entityType: Money, money: &p}
}

// NewPaymentCard creates a PaymentCard entity.
func NewPaymentCard(p PaymentCardPayload) Entity {
	return Entity{entityType: PaymentCard, paymentCard: &p}
}

// NewTrackingNumber creates a TrackingNumber entity.
func NewTrackingNumber(p TrackingNumberPayload) Entity {
	return Entity{entityType: TrackingNumber, trackingNumber: &p}
}

// Type returns the type tag of the entity.
func (e Entity) Type() Type {
	return e.entityType
}

// DateTime returns the DateTime payload, or false if the entity is not a
// DateTime entity.
func (e Entity) DateTime() (DateTimePayload, bool) {
	if e.dateTime == nil {
		return DateTimePayload{}, false
	}
	return *e.dateTime, true
}

// FlightNumber returns the FlightNumber payload, or false if absent.
func (e Entity) FlightNumber() (FlightNumberPayload, bool) {
	if e.flightNumber == nil {
		return FlightNumberPayload{}, false
	}
	return *e.flightNumber, true
}

// IBAN returns the IBAN payload, or false if absent.
func (e Entity) IBAN() (IBANPayload, bool) {
	if e.iban == nil {
		return IBANPayload{}, false
	}
	return *e.iban, true
}

// ISBN returns the ISBN payload, or false if absent.
func (e Entity) ISBN() (ISBNPayload, bool) {
	if e.isbn == nil {
		return ISBNPayload{}, false
	}
	return *e.isbn, true
}

// Money returns the Money payload, or false if absent.
func (e Entity) Money() (MoneyPayload, bool) {
	if e.money == nil {
		return MoneyPayload{}, false
	}
	return *e.money, true
}

// PaymentCard returns the PaymentCard payload, or false if absent.
func (e Entity) PaymentCard() (PaymentCardPayload, bool) {
	if e.paymentCard == nil {
		return PaymentCardPayload{}, false
	}
	return *e.paymentCard, true
}

// TrackingNumber returns the TrackingNumber payload, or false if absent.
func (e Entity) TrackingNumber() (TrackingNumberPayload, bool) {
	if e.trackingNumber == nil {
		return TrackingNumberPayload{}, false
	}
	return *e.trackingNumber, true
}

// String returns a debug representation, e.g. iban(DE89370400440532013000).
func (e Entity) String() string {
	switch e.entityType {
	case DateTime:
		if p, ok := e.DateTime(); ok {
			return fmt.Sprintf("%s(%s@%s)", e.entityType, p.Time.Format(time.RFC3339), p.Granularity)
		}
	case FlightNumber:
		if p, ok := e.FlightNumber(); ok {
			return fmt.Sprintf("%s(%s%s)", e.entityType, p.AirlineCode, p.FlightNumber)
		}
	case IBAN:
		if p, ok := e.IBAN(); ok {
			return fmt.Sprintf("%s(%s)", e.entityType, p.IBAN)
		}
	case ISBN:
		if p, ok := e.ISBN(); ok {
			return fmt.Sprintf("%s(%s)", e.entityType, p.ISBN)
		}
	case Money:
		if p, ok := e.Money(); ok {
			return fmt.Sprintf("%s(%s %d.%d)", e.entityType, p.UnnormalizedCurrency, p.IntegerPart, p.FractionalPart)
		}
	case PaymentCard:
		if p, ok := e.PaymentCard(); ok {
			return fmt.Sprintf("%s(%s/%s)", e.entityType, p.Network, p.Number)
		}
	case TrackingNumber:
		if p, ok := e.TrackingNumber(); ok {
			return fmt.Sprintf("%s(%s/%s)", e.entityType, p.Carrier, p.Number)
		}
	}
	return e.entityType.String()
}
