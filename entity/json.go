package entity

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the granularity as its name (e.g. "day").
func (g Granularity) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON decodes a granularity name.
func (g *Granularity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range granularityNames {
		if name == s {
			*g = Granularity(i)
			return nil
		}
	}
	return fmt.Errorf("entity: unknown granularity: %q", s)
}

// MarshalJSON encodes the card network as its name (e.g. "visa").
func (n CardNetwork) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON decodes a card network name.
func (n *CardNetwork) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range cardNetworkNames {
		if name == s {
			*n = CardNetwork(i)
			return nil
		}
	}
	return fmt.Errorf("entity: unknown card network: %q", s)
}

// MarshalJSON encodes the carrier as its name (e.g. "ups").
func (c Carrier) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a carrier name.
func (c *Carrier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range carrierNames {
		if name == s {
			*c = Carrier(i)
			return nil
		}
	}
	return fmt.Errorf("entity: unknown carrier: %q", s)
}

// entityJSON is the wire form of an Entity. The type tag is always present;
// at most one payload field is populated.
type entityJSON struct {
	Type           Type                   `json:"type"`
	DateTime       *DateTimePayload       `json:"datetime,omitempty"`
	FlightNumber   *FlightNumberPayload   `json:"flight_number,omitempty"`
	IBAN           *IBANPayload           `json:"iban,omitempty"`
	ISBN           *ISBNPayload           `json:"isbn,omitempty"`
	Money          *MoneyPayload          `json:"money,omitempty"`
	PaymentCard    *PaymentCardPayload    `json:"payment_card,omitempty"`
	TrackingNumber *TrackingNumberPayload `json:"tracking_number,omitempty"`
}

// MarshalJSON encodes the entity as a type tag plus its single payload,
// e.g. {"type":"iban","iban":{"iban":"...","country_code":"DE"}}.
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(entityJSON{
		Type:           e.entityType,
		DateTime:       e.dateTime,
		FlightNumber:   e.flightNumber,
		IBAN:           e.iban,
		ISBN:           e.isbn,
		Money:          e.money,
		PaymentCard:    e.paymentCard,
		TrackingNumber: e.trackingNumber,
	})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var w entityJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.entityType = w.Type
	e.dateTime = w.DateTime
	e.flightNumber = w.FlightNumber
	e.iban = w.IBAN
	e.isbn = w.ISBN
	e.money = w.Money
	e.paymentCard = w.PaymentCard
	e.trackingNumber = w.TrackingNumber
	return nil
}
