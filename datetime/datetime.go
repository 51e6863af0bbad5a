// Package datetime resolves raw date/time candidate spans into a single
// absolute instant plus granularity.
//
// A raw span may admit several interpretations ("01/02/2000" reads as both
// day-first and month-first). Resolution uses the caller's preferred locale
// to pick the conventional field order, anchors relative expressions
// ("tomorrow", "next week") to the reference time in the reference zone, and
// derives granularity from the coarsest unit the text made explicit: a bare
// year resolves to year granularity, a full date to day, a date with a clock
// time to minute or second.
//
// Unlike the other entity types, a date/time span never yields multiple
// competing interpretations: the locale convention picks one deterministically.
// An unparsable span is dropped silently.
//
// All functions are pure and safe for concurrent use.
package datetime

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/c360/textann/entity"
)

// relativeParser handles natural-language relative expressions. A when.Parser
// is safe for concurrent Parse calls once rules are added.
var relativeParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// Resolve turns a raw date/time span into exactly one payload. It reports
// false when the span holds no recognizable date or time expression.
func Resolve(raw string, params entity.Params) (entity.DateTimePayload, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return entity.DateTimePayload{}, false
	}

	ref := params.EffectiveReferenceTime().In(params.EffectiveZone())

	// Deterministic grammars first: ISO, numeric, month-name, bare year,
	// clock time. The natural-language parser is the fallback.
	for _, parse := range []func(string, entity.Params, time.Time) (entity.DateTimePayload, bool){
		parseISO,
		parseNumeric,
		parseMonthName,
		parseYear,
		parseClockTime,
	} {
		if p, ok := parse(raw, params, ref); ok {
			return p, true
		}
	}

	return parseRelative(raw, ref)
}

// parseRelative resolves natural-language expressions ("tomorrow", "next
// week", "in 3 days") against the reference time.
func parseRelative(raw string, ref time.Time) (entity.DateTimePayload, bool) {
	res, err := relativeParser.Parse(raw, ref)
	if err != nil || res == nil {
		return entity.DateTimePayload{}, false
	}
	return entity.DateTimePayload{
		Time:        res.Time,
		Granularity: relativeGranularity(raw),
	}, true
}

// relativeGranularity derives the granularity of a relative expression from
// the unit word it names.
func relativeGranularity(raw string) entity.Granularity {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "second"):
		return entity.GranularitySecond
	case strings.Contains(lower, "minute") || strings.Contains(lower, ":"):
		return entity.GranularityMinute
	case strings.Contains(lower, "hour") ||
		strings.Contains(lower, "am") || strings.Contains(lower, "pm") ||
		strings.Contains(lower, "noon") || strings.Contains(lower, "midnight"):
		return entity.GranularityHour
	case strings.Contains(lower, "week"):
		return entity.GranularityWeek
	case strings.Contains(lower, "month"):
		return entity.GranularityMonth
	case strings.Contains(lower, "year"):
		return entity.GranularityYear
	default:
		return entity.GranularityDay
	}
}
