package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/textann/entity"
)

func scored(start, length int, conf float64, ent entity.Entity) Scored {
	return Scored{Start: start, Length: length, Confidence: conf, Entity: ent}
}

func TestAssembleEmpty(t *testing.T) {
	a := NewAssembler()
	assert.Nil(t, a.Assemble(nil))
	assert.Nil(t, a.Assemble([]Scored{}))
}

func TestAssembleNoOverlapInvariant(t *testing.T) {
	a := NewAssembler()
	items := []Scored{
		scored(0, 10, 0.9, entity.New(entity.Email)),
		scored(0, 5, 0.8, entity.New(entity.Phone)),
		scored(3, 4, 0.95, entity.New(entity.URL)),
		scored(8, 6, 0.7, entity.New(entity.Address)),
		scored(12, 3, 0.6, entity.New(entity.Phone)),
		scored(20, 4, 0.5, entity.New(entity.URL)),
	}

	anns := a.Assemble(items)
	require.NotEmpty(t, anns)
	for i := 1; i < len(anns); i++ {
		assert.GreaterOrEqual(t, anns[i].Start, anns[i-1].End(),
			"annotations must be sorted and non-overlapping")
		assert.False(t, anns[i].Overlaps(anns[i-1]))
	}
}

func TestAssembleGreedyLongestMatch(t *testing.T) {
	a := NewAssembler()
	items := []Scored{
		// Shorter span at the same start loses to the longer one.
		scored(0, 5, 0.99, entity.New(entity.Phone)),
		scored(0, 10, 0.5, entity.New(entity.Email)),
		// Overlaps the winner, dropped.
		scored(7, 6, 0.9, entity.New(entity.URL)),
		// Clear of the winner, kept.
		scored(10, 4, 0.4, entity.New(entity.Address)),
	}

	anns := a.Assemble(items)
	require.Len(t, anns, 2)
	assert.Equal(t, 0, anns[0].Start)
	assert.Equal(t, 10, anns[0].Length)
	assert.Equal(t, 10, anns[1].Start)
}

func TestAssembleInterpretationOrdering(t *testing.T) {
	a := NewAssembler()
	card := entity.NewPaymentCard(entity.PaymentCardPayload{Network: entity.CardNetworkVisa, Number: "4111111111111111"})
	tracking := entity.NewTrackingNumber(entity.TrackingNumberPayload{Carrier: entity.CarrierUnknown, Number: "4111111111111111"})

	// Higher confidence first regardless of type order.
	anns := a.Assemble([]Scored{
		scored(0, 16, 0.55, card),
		scored(0, 16, 0.80, tracking),
	})
	require.Len(t, anns, 1)
	require.Len(t, anns[0].Entities, 2)
	assert.Equal(t, entity.TrackingNumber, anns[0].Entities[0].Type())
	assert.Equal(t, entity.PaymentCard, anns[0].Entities[1].Type())

	// Equal confidence falls back to enumeration order.
	anns = a.Assemble([]Scored{
		scored(0, 16, 0.7, tracking),
		scored(0, 16, 0.7, card),
	})
	require.Len(t, anns, 1)
	assert.Equal(t, entity.PaymentCard, anns[0].Entities[0].Type())
	assert.Equal(t, entity.TrackingNumber, anns[0].Entities[1].Type())
}

func TestAssembleTypePriorityOverride(t *testing.T) {
	a := NewAssembler(WithTypePriority(entity.TrackingNumber, entity.PaymentCard))
	card := entity.NewPaymentCard(entity.PaymentCardPayload{Network: entity.CardNetworkVisa, Number: "4111111111111111"})
	tracking := entity.NewTrackingNumber(entity.TrackingNumberPayload{Carrier: entity.CarrierUPS, Number: "1Z204E380338943508"})

	anns := a.Assemble([]Scored{
		scored(0, 16, 0.7, card),
		scored(0, 16, 0.7, tracking),
	})
	require.Len(t, anns, 1)
	assert.Equal(t, entity.TrackingNumber, anns[0].Entities[0].Type())
}

func TestAssembleCollapsesDuplicateTypes(t *testing.T) {
	a := NewAssembler()
	anns := a.Assemble([]Scored{
		scored(0, 12, 0.6, entity.New(entity.Phone)),
		scored(0, 12, 0.9, entity.New(entity.Phone)),
	})
	require.Len(t, anns, 1)
	assert.Len(t, anns[0].Entities, 1)
}

func TestAssembleDropsDegenerateSpans(t *testing.T) {
	a := NewAssembler()
	anns := a.Assemble([]Scored{
		scored(0, 0, 0.9, entity.New(entity.Email)),
		scored(-1, 5, 0.9, entity.New(entity.Email)),
	})
	assert.Empty(t, anns)
}
