package validate

import (
	"regexp"
	"strings"

	"github.com/c360/textann/entity"
)

// reFlight matches an IATA flight designator: a 2-3 letter airline code and
// a 1-4 digit flight number, optionally separated by a single space.
var reFlight = regexp.MustCompile(`^([A-Z]{2,3}) ?(\d{1,4})$`)

// Flight validates a flight number span. No checksum exists for flight
// designators; validation is by grammar only.
func Flight(raw string) (entity.Entity, bool) {
	m := reFlight.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(raw)))
	if m == nil {
		return entity.Entity{}, false
	}
	return entity.NewFlightNumber(entity.FlightNumberPayload{
		AirlineCode:  m[1],
		FlightNumber: m[2],
	}), true
}
