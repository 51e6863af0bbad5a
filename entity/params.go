package entity

import "time"

// Params carries the per-call extraction parameters. The zero value is not
// usable; construct with DefaultParams and override fields as needed.
// A Params value is immutable for the duration of a call.
type Params struct {
	// ReferenceTime anchors relative date expressions ("tomorrow").
	// Zero means the time extraction is invoked.
	ReferenceTime time.Time

	// ReferenceTimeZone is the zone ReferenceTime is interpreted in.
	// Nil means the system zone at call time.
	ReferenceTimeZone *time.Location

	// PreferredLocale disambiguates ambiguous date formats, e.g.
	// "01/02/2000" is January 2 under "en-US" and February 1 under "en-GB".
	// BCP-47 form. Empty means the system locale.
	PreferredLocale string

	// TypesFilter restricts which entity types are detected. Types not in
	// the set are never returned even when present in the text. Nil or
	// empty means all types.
	TypesFilter TypeSet
}

// DefaultParams returns params with the documented defaults: reference time
// resolved at call time, system zone, system locale, every entity type.
func DefaultParams() Params {
	return Params{
		TypesFilter: AllTypeSet(),
	}
}

// Filter returns the effective type filter, substituting the full set when
// none was provided.
func (p Params) Filter() TypeSet {
	if len(p.TypesFilter) == 0 {
		return AllTypeSet()
	}
	return p.TypesFilter
}

// EffectiveReferenceTime resolves the reference time, defaulting to now.
func (p Params) EffectiveReferenceTime() time.Time {
	if p.ReferenceTime.IsZero() {
		return time.Now()
	}
	return p.ReferenceTime
}

// EffectiveZone resolves the reference zone, defaulting to the system zone.
func (p Params) EffectiveZone() *time.Location {
	if p.ReferenceTimeZone == nil {
		return time.Local
	}
	return p.ReferenceTimeZone
}
