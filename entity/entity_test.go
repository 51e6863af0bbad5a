package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Address, "address"},
		{DateTime, "datetime"},
		{FlightNumber, "flight_number"},
		{TrackingNumber, "tracking_number"},
		{URL, "url"},
		{Type(99), "Type(99)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}

func TestTypeJSONRoundTrip(t *testing.T) {
	for _, typ := range AllTypes() {
		data, err := json.Marshal(typ)
		require.NoError(t, err)

		var back Type
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, typ, back)
	}

	var bad Type
	err := json.Unmarshal([]byte(`"postcard"`), &bad)
	assert.Error(t, err)
}

func TestAllTypesOrder(t *testing.T) {
	types := AllTypes()
	require.Len(t, types, 11)

	// Enumeration order is the documented tie-break order.
	for i := 1; i < len(types); i++ {
		assert.Less(t, int(types[i-1]), int(types[i]))
	}
}

func TestTypeSet(t *testing.T) {
	s := NewTypeSet(IBAN, URL)
	assert.True(t, s.Contains(IBAN))
	assert.True(t, s.Contains(URL))
	assert.False(t, s.Contains(Phone))

	all := AllTypeSet()
	for _, typ := range AllTypes() {
		assert.True(t, all.Contains(typ))
	}
}

func TestEntitySinglePayload(t *testing.T) {
	e := NewIBAN(IBANPayload{IBAN: "DE89370400440532013000", CountryCode: "DE"})
	assert.Equal(t, IBAN, e.Type())

	p, ok := e.IBAN()
	require.True(t, ok)
	assert.Equal(t, "DE", p.CountryCode)

	// Every other accessor reports absent.
	_, ok = e.DateTime()
	assert.False(t, ok)
	_, ok = e.PaymentCard()
	assert.False(t, ok)
	_, ok = e.TrackingNumber()
	assert.False(t, ok)
	_, ok = e.Money()
	assert.False(t, ok)
	_, ok = e.ISBN()
	assert.False(t, ok)
	_, ok = e.FlightNumber()
	assert.False(t, ok)
}

func TestEntityNoPayloadTypes(t *testing.T) {
	for _, typ := range []Type{Address, Email, Phone, URL} {
		e := New(typ)
		assert.Equal(t, typ, e.Type())
		_, ok := e.IBAN()
		assert.False(t, ok)
	}
}

func TestEntityString(t *testing.T) {
	e := NewPaymentCard(PaymentCardPayload{Network: CardNetworkVisa, Number: "4111111111111111"})
	assert.Equal(t, "payment_card(visa/4111111111111111)", e.String())

	dt := NewDateTime(DateTimePayload{
		Time:        time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Granularity: GranularityDay,
	})
	assert.Contains(t, dt.String(), "datetime(")
	assert.Contains(t, dt.String(), "day")
}

func TestAnnotationOverlaps(t *testing.T) {
	a := Annotation{Start: 0, Length: 5}
	b := Annotation{Start: 4, Length: 3}
	c := Annotation{Start: 5, Length: 2}

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c)) // adjacent, not overlapping
	assert.Equal(t, 5, a.End())
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.True(t, p.ReferenceTime.IsZero())
	assert.Nil(t, p.ReferenceTimeZone)
	assert.Empty(t, p.PreferredLocale)
	assert.Len(t, p.TypesFilter, 11)

	// Zero filter falls back to the full set.
	var zero Params
	assert.Len(t, zero.Filter(), 11)

	// Effective reference time defaults to roughly now.
	before := time.Now()
	got := zero.EffectiveReferenceTime()
	assert.False(t, got.Before(before.Add(-time.Second)))

	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p.ReferenceTime = fixed
	assert.Equal(t, fixed, p.EffectiveReferenceTime())

	assert.Equal(t, time.Local, zero.EffectiveZone())
	p.ReferenceTimeZone = time.UTC
	assert.Equal(t, time.UTC, p.EffectiveZone())
}
