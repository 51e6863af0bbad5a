package entity

import "fmt"

// Annotation is a text span plus the ordered, non-empty list of competing
// typed interpretations of that exact span. Interpretations are ordered by
// descending pipeline confidence, ties broken by Type enumeration order.
// Offsets are byte offsets into the annotated text, satisfying the invariant
// text[Start:Start+Length] == the matched substring.
type Annotation struct {
	Start    int      `json:"start"`
	Length   int      `json:"length"`
	Entities []Entity `json:"entities"`
}

// End returns the exclusive end offset of the span.
func (a Annotation) End() int {
	return a.Start + a.Length
}

// Overlaps reports whether the span intersects another annotation's span.
func (a Annotation) Overlaps(b Annotation) bool {
	return a.Start < b.End() && b.Start < a.End()
}

// String returns a debug representation, e.g. [12:30 iban|tracking_number].
func (a Annotation) String() string {
	s := fmt.Sprintf("[%d:%d", a.Start, a.End())
	for i, e := range a.Entities {
		if i == 0 {
			s += " "
		} else {
			s += "|"
		}
		s += e.Type().String()
	}
	return s + "]"
}
