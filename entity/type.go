// Package entity defines the data model for text annotation: the closed set of
// entity types, the tagged-union Entity value with one structured payload per
// type, the Annotation span record, and the per-call extraction parameters.
package entity

import (
	"encoding/json"
	"fmt"
)

// Type classifies an extracted entity.
//
// The enumeration order is significant: it is the fixed tie-break used when
// two interpretations of the same span carry equal confidence.
type Type int

const (
	Address        Type = iota // physical address
	DateTime                   // absolute or relative time reference
	Email                      // e-mail address
	FlightNumber               // flight number in IATA format
	IBAN                       // International Bank Account Number
	ISBN                       // International Standard Book Number
	Money                      // amount of money
	PaymentCard                // payment card number
	Phone                      // phone number
	TrackingNumber             // shipment tracking number
	URL                        // web address
)

// typeNames maps Type values to their string names.
var typeNames = [...]string{
	Address:        "address",
	DateTime:       "datetime",
	Email:          "email",
	FlightNumber:   "flight_number",
	IBAN:           "iban",
	ISBN:           "isbn",
	Money:          "money",
	PaymentCard:    "payment_card",
	Phone:          "phone",
	TrackingNumber: "tracking_number",
	URL:            "url",
}

// typeFromName maps string names back to Type values.
var typeFromName = map[string]Type{
	"address":         Address,
	"datetime":        DateTime,
	"email":           Email,
	"flight_number":   FlightNumber,
	"iban":            IBAN,
	"isbn":            ISBN,
	"money":           Money,
	"payment_card":    PaymentCard,
	"phone":           Phone,
	"tracking_number": TrackingNumber,
	"url":             URL,
}

// AllTypes returns every supported entity type in enumeration order.
// The returned slice is a fresh copy on each call.
func AllTypes() []Type {
	return []Type{
		Address, DateTime, Email, FlightNumber, IBAN, ISBN,
		Money, PaymentCard, Phone, TrackingNumber, URL,
	}
}

// Valid reports whether t is a member of the closed type set.
func (t Type) Valid() bool {
	return int(t) >= 0 && int(t) < len(typeNames)
}

// String returns the name of the entity type.
func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// MarshalJSON encodes the entity type as a JSON string (e.g. "iban").
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a JSON string (e.g. "iban") into a Type.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	et, ok := typeFromName[s]
	if !ok {
		return fmt.Errorf("entity: unknown type: %q", s)
	}
	*t = et
	return nil
}

// TypeSet is a set of entity types used as an extraction filter.
type TypeSet map[Type]struct{}

// NewTypeSet builds a set from the given types.
func NewTypeSet(types ...Type) TypeSet {
	s := make(TypeSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// AllTypeSet returns a set containing every supported entity type.
func AllTypeSet() TypeSet {
	return NewTypeSet(AllTypes()...)
}

// Contains reports whether t is in the set.
func (s TypeSet) Contains(t Type) bool {
	_, ok := s[t]
	return ok
}
