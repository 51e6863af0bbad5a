package datetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/textann/entity"
)

// refParams returns params anchored at 2024-03-01T00:00:00Z.
func refParams(locale string) entity.Params {
	p := entity.DefaultParams()
	p.ReferenceTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p.ReferenceTimeZone = time.UTC
	p.PreferredLocale = locale
	return p
}

func TestResolveRelativeTomorrow(t *testing.T) {
	got, ok := Resolve("tomorrow", refParams("en-US"))
	require.True(t, ok)

	assert.Equal(t, 2024, got.Time.Year())
	assert.Equal(t, time.March, got.Time.Month())
	assert.Equal(t, 2, got.Time.Day())
	assert.Equal(t, entity.GranularityDay, got.Granularity)
}

func TestResolveRelativeUnits(t *testing.T) {
	tests := []struct {
		raw  string
		want entity.Granularity
	}{
		{"next week", entity.GranularityWeek},
		{"next month", entity.GranularityMonth},
		{"next year", entity.GranularityYear},
		{"yesterday", entity.GranularityDay},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Resolve(tt.raw, refParams("en-US"))
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Granularity)
		})
	}
}

func TestResolveLocaleTieBreak(t *testing.T) {
	// "01/02/2000" is ambiguous: en-US reads January 2, en-GB February 1.
	us, ok := Resolve("01/02/2000", refParams("en-US"))
	require.True(t, ok)
	assert.Equal(t, time.January, us.Time.Month())
	assert.Equal(t, 2, us.Time.Day())
	assert.Equal(t, entity.GranularityDay, us.Granularity)

	gb, ok := Resolve("01/02/2000", refParams("en-GB"))
	require.True(t, ok)
	assert.Equal(t, time.February, gb.Time.Month())
	assert.Equal(t, 1, gb.Time.Day())
}

func TestResolveUnambiguousNumericIgnoresLocale(t *testing.T) {
	// A field over 12 forces the only legal reading regardless of locale.
	got, ok := Resolve("13/02/2000", refParams("en-US"))
	require.True(t, ok)
	assert.Equal(t, time.February, got.Time.Month())
	assert.Equal(t, 13, got.Time.Day())

	got, ok = Resolve("02/13/2000", refParams("en-GB"))
	require.True(t, ok)
	assert.Equal(t, time.February, got.Time.Month())
	assert.Equal(t, 13, got.Time.Day())
}

func TestResolveISO(t *testing.T) {
	got, ok := Resolve("2026-03-05", refParams(""))
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), got.Time)
	assert.Equal(t, entity.GranularityDay, got.Granularity)

	got, ok = Resolve("2026-03-05 17:30", refParams(""))
	require.True(t, ok)
	assert.Equal(t, 17, got.Time.Hour())
	assert.Equal(t, entity.GranularityMinute, got.Granularity)

	got, ok = Resolve("2026-03-05T17:30:05", refParams(""))
	require.True(t, ok)
	assert.Equal(t, 5, got.Time.Second())
	assert.Equal(t, entity.GranularitySecond, got.Granularity)
}

func TestResolveGranularityFromClock(t *testing.T) {
	// Date with minutes resolves to minute granularity.
	got, ok := Resolve("01/02/2000 17:30", refParams("en-US"))
	require.True(t, ok)
	assert.Equal(t, entity.GranularityMinute, got.Granularity)
	assert.Equal(t, 17, got.Time.Hour())

	// Seconds present resolves to second granularity.
	got, ok = Resolve("01/02/2000 17:30:45", refParams("en-US"))
	require.True(t, ok)
	assert.Equal(t, entity.GranularitySecond, got.Granularity)

	// Meridiem handling.
	got, ok = Resolve("01/02/2000 5:30 pm", refParams("en-US"))
	require.True(t, ok)
	assert.Equal(t, 17, got.Time.Hour())
}

func TestResolveBareYear(t *testing.T) {
	got, ok := Resolve("1999", refParams(""))
	require.True(t, ok)
	assert.Equal(t, 1999, got.Time.Year())
	assert.Equal(t, entity.GranularityYear, got.Granularity)

	// Implausible years are not dates.
	_, ok = Resolve("0042", refParams(""))
	assert.False(t, ok)
}

func TestResolveMonthNames(t *testing.T) {
	got, ok := Resolve("March 5, 2026", refParams(""))
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), got.Time)
	assert.Equal(t, entity.GranularityDay, got.Granularity)

	got, ok = Resolve("5 March 2026", refParams(""))
	require.True(t, ok)
	assert.Equal(t, 5, got.Time.Day())

	got, ok = Resolve("March 2026", refParams(""))
	require.True(t, ok)
	assert.Equal(t, entity.GranularityMonth, got.Granularity)
}

func TestResolveClockTimeOnReferenceDay(t *testing.T) {
	got, ok := Resolve("17:30", refParams(""))
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC), got.Time)
	assert.Equal(t, entity.GranularityMinute, got.Granularity)

	got, ok = Resolve("12:51:09", refParams(""))
	require.True(t, ok)
	assert.Equal(t, entity.GranularitySecond, got.Granularity)
}

func TestResolveReferenceZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	p := refParams("de-DE")
	p.ReferenceTimeZone = berlin

	got, ok := Resolve("17:30", p)
	require.True(t, ok)
	assert.Equal(t, berlin, got.Time.Location())
}

func TestResolveInvalidSpans(t *testing.T) {
	for _, raw := range []string{
		"",
		"not a date",
		"99/99/2000",
		"2026-13-40",
		"30/02/2021", // February 30 does not exist
		"25:99",
	} {
		_, ok := Resolve(raw, refParams("en-US"))
		assert.False(t, ok, "Resolve(%q) should fail", raw)
	}
}

func TestResolveTwoDigitYear(t *testing.T) {
	got, ok := Resolve("01/02/24", refParams("en-US"))
	require.True(t, ok)
	assert.Equal(t, 2024, got.Time.Year())
}
