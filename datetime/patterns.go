package datetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/c360/textann/entity"
)

// Compiled grammars for the deterministic date/time formats.
var (
	// ISO 8601 date with optional clock time: 2026-03-05, 2026-03-05 17:30:05
	reISO = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[T ](\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)

	// Ambiguous numeric date: 01/02/2000, 1.2.2000, 01-02-00, with optional time
	reNumeric = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2,4})(?:[ ,]+(\d{1,2}):(\d{2})(?::(\d{2}))?\s?([AaPp][Mm])?)?$`)

	// Month-name dates: "March 5, 2026", "5 March 2026", "March 2026"
	reMonthDayYear = regexp.MustCompile(`^([A-Za-z]{3,9})\.? (\d{1,2})(?:st|nd|rd|th)?,? (\d{4})$`)
	reDayMonthYear = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)? ([A-Za-z]{3,9})\.?,? (\d{4})$`)
	reMonthYear    = regexp.MustCompile(`^([A-Za-z]{3,9})\.? (\d{4})$`)

	// Bare year
	reYear = regexp.MustCompile(`^(\d{4})$`)

	// Clock time: 17:30, 5:30 pm, 17:30:05
	reClock = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?\s?([AaPp][Mm])?$`)
)

// monthsByName maps English month names and their three-letter abbreviations
// to month numbers.
var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// monthFirstRegions holds the BCP-47 regions whose convention is
// month-day-year field order. Everything else reads day-first.
var monthFirstRegions = map[string]struct{}{
	"US": {}, "PH": {}, "FM": {}, "GU": {}, "MH": {}, "PW": {}, "UM": {}, "VI": {},
}

// Plausible year range for bare-year candidates.
const (
	minBareYear = 1600
	maxBareYear = 2200
)

func parseISO(raw string, _ entity.Params, ref time.Time) (entity.DateTimePayload, bool) {
	m := reISO.FindStringSubmatch(raw)
	if m == nil {
		return entity.DateTimePayload{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if !validYMD(year, month, day) {
		return entity.DateTimePayload{}, false
	}

	if m[4] == "" {
		return entity.DateTimePayload{
			Time:        time.Date(year, time.Month(month), day, 0, 0, 0, 0, ref.Location()),
			Granularity: entity.GranularityDay,
		}, true
	}
	return withClock(year, time.Month(month), day, m[4], m[5], m[6], "", ref.Location())
}

// parseNumeric handles the ambiguous separator formats. When both fields
// could be a month (day <= 12 and month <= 12) the preferred locale's
// conventional order decides; a field > 12 forces the only legal reading.
func parseNumeric(raw string, params entity.Params, ref time.Time) (entity.DateTimePayload, bool) {
	m := reNumeric.FindStringSubmatch(raw)
	if m == nil {
		return entity.DateTimePayload{}, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}

	var day, month int
	switch {
	case a > 12 && b <= 12:
		day, month = a, b
	case b > 12 && a <= 12:
		month, day = a, b
	case monthFirst(params.PreferredLocale):
		month, day = a, b
	default:
		day, month = a, b
	}
	if !validYMD(year, month, day) {
		return entity.DateTimePayload{}, false
	}

	if m[4] == "" {
		return entity.DateTimePayload{
			Time:        time.Date(year, time.Month(month), day, 0, 0, 0, 0, ref.Location()),
			Granularity: entity.GranularityDay,
		}, true
	}
	return withClock(year, time.Month(month), day, m[4], m[5], m[6], m[7], ref.Location())
}

func parseMonthName(raw string, _ entity.Params, ref time.Time) (entity.DateTimePayload, bool) {
	if m := reMonthDayYear.FindStringSubmatch(raw); m != nil {
		month, ok := monthsByName[strings.ToLower(m[1])]
		if !ok {
			return entity.DateTimePayload{}, false
		}
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if !validYMD(year, int(month), day) {
			return entity.DateTimePayload{}, false
		}
		return entity.DateTimePayload{
			Time:        time.Date(year, month, day, 0, 0, 0, 0, ref.Location()),
			Granularity: entity.GranularityDay,
		}, true
	}

	if m := reDayMonthYear.FindStringSubmatch(raw); m != nil {
		month, ok := monthsByName[strings.ToLower(m[2])]
		if !ok {
			return entity.DateTimePayload{}, false
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if !validYMD(year, int(month), day) {
			return entity.DateTimePayload{}, false
		}
		return entity.DateTimePayload{
			Time:        time.Date(year, month, day, 0, 0, 0, 0, ref.Location()),
			Granularity: entity.GranularityDay,
		}, true
	}

	if m := reMonthYear.FindStringSubmatch(raw); m != nil {
		month, ok := monthsByName[strings.ToLower(m[1])]
		if !ok {
			return entity.DateTimePayload{}, false
		}
		year, _ := strconv.Atoi(m[2])
		if year < minBareYear || year > maxBareYear {
			return entity.DateTimePayload{}, false
		}
		return entity.DateTimePayload{
			Time:        time.Date(year, month, 1, 0, 0, 0, 0, ref.Location()),
			Granularity: entity.GranularityMonth,
		}, true
	}

	return entity.DateTimePayload{}, false
}

func parseYear(raw string, _ entity.Params, ref time.Time) (entity.DateTimePayload, bool) {
	m := reYear.FindStringSubmatch(raw)
	if m == nil {
		return entity.DateTimePayload{}, false
	}
	year, _ := strconv.Atoi(m[1])
	if year < minBareYear || year > maxBareYear {
		return entity.DateTimePayload{}, false
	}
	return entity.DateTimePayload{
		Time:        time.Date(year, time.January, 1, 0, 0, 0, 0, ref.Location()),
		Granularity: entity.GranularityYear,
	}, true
}

// parseClockTime resolves a bare clock time on the reference day.
func parseClockTime(raw string, _ entity.Params, ref time.Time) (entity.DateTimePayload, bool) {
	m := reClock.FindStringSubmatch(raw)
	if m == nil {
		return entity.DateTimePayload{}, false
	}
	return withClock(ref.Year(), ref.Month(), ref.Day(), m[1], m[2], m[3], m[4], ref.Location())
}

// withClock builds a payload for a date with an explicit clock time.
// Granularity is minute, or second when seconds were present.
func withClock(year int, month time.Month, day int, hourS, minS, secS, meridiem string, loc *time.Location) (entity.DateTimePayload, bool) {
	hour, _ := strconv.Atoi(hourS)
	minute, _ := strconv.Atoi(minS)
	if minute > 59 {
		return entity.DateTimePayload{}, false
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return entity.DateTimePayload{}, false
		}
		hour %= 12
		if meridiem[0] == 'p' || meridiem[0] == 'P' {
			hour += 12
		}
	} else if hour > 23 {
		return entity.DateTimePayload{}, false
	}

	granularity := entity.GranularityMinute
	second := 0
	if secS != "" {
		second, _ = strconv.Atoi(secS)
		if second > 59 {
			return entity.DateTimePayload{}, false
		}
		granularity = entity.GranularitySecond
	}

	return entity.DateTimePayload{
		Time:        time.Date(year, month, day, hour, minute, second, 0, loc),
		Granularity: granularity,
	}, true
}

// monthFirst reports whether the locale's conventional field order is
// month-day-year. The region subtag decides; a bare language tag falls back
// to "en" meaning the US convention and day-first for everything else.
func monthFirst(locale string) bool {
	if locale == "" {
		return false
	}
	parts := strings.Split(strings.ReplaceAll(locale, "_", "-"), "-")
	for _, p := range parts[1:] {
		if len(p) == 2 {
			_, ok := monthFirstRegions[strings.ToUpper(p)]
			return ok
		}
	}
	return strings.EqualFold(parts[0], "en")
}

// validYMD checks calendar validity including month lengths and leap years.
func validYMD(year, month, day int) bool {
	if year < minBareYear || year > maxBareYear || month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && int(t.Month()) == month
}
