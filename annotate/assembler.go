// Package annotate assembles validated candidates into final annotations
// and provides the Extractor, the public entry point of the extraction
// pipeline.
package annotate

import (
	"cmp"
	"slices"

	"github.com/c360/textann/entity"
)

// Scored pairs a validated entity with the span and scanner confidence of
// the candidate it came from.
type Scored struct {
	Start      int
	Length     int
	Confidence float64
	Entity     entity.Entity
}

// End returns the exclusive end offset of the scored span.
func (s Scored) End() int { return s.Start + s.Length }

// Assembler merges validated entities into non-overlapping annotations.
// Span selection is greedy longest-match left-to-right; interpretations
// within one span are ordered by descending confidence with ties broken by
// a fixed type priority.
type Assembler struct {
	// priority maps each type to its tie-break rank; lower wins.
	priority map[entity.Type]int
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithTypePriority overrides the equal-confidence tie-break order. Types
// not listed keep their enumeration order after the listed ones.
func WithTypePriority(order ...entity.Type) AssemblerOption {
	return func(a *Assembler) {
		rank := make(map[entity.Type]int, len(entity.AllTypes()))
		for i, t := range order {
			rank[t] = i
		}
		next := len(order)
		for _, t := range entity.AllTypes() {
			if _, ok := rank[t]; !ok {
				rank[t] = next
				next++
			}
		}
		a.priority = rank
	}
}

// NewAssembler creates an Assembler. The default tie-break priority is the
// entity type enumeration order.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{priority: make(map[entity.Type]int)}
	for i, t := range entity.AllTypes() {
		a.priority[t] = i
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type spanKey struct {
	start  int
	length int
}

type spanGroup struct {
	start  int
	length int
	items  []Scored
}

// Assemble groups scored entities by exact span, resolves overlaps between
// spans, and orders interpretations within each surviving span. Returned
// annotations are sorted by start offset and never overlap.
func (a *Assembler) Assemble(items []Scored) []entity.Annotation {
	if len(items) == 0 {
		return nil
	}

	groups := make(map[spanKey]*spanGroup)
	order := make([]*spanGroup, 0, len(items))
	for _, it := range items {
		if it.Length <= 0 || it.Start < 0 {
			continue
		}
		key := spanKey{it.Start, it.Length}
		g, ok := groups[key]
		if !ok {
			g = &spanGroup{start: it.Start, length: it.Length}
			groups[key] = g
			order = append(order, g)
		}
		g.items = append(g.items, it)
	}
	if len(order) == 0 {
		return nil
	}

	// Greedy longest-match left-to-right: earlier start wins, longer span
	// wins at the same start, and anything overlapping a chosen span is
	// dropped.
	slices.SortFunc(order, func(x, y *spanGroup) int {
		if c := cmp.Compare(x.start, y.start); c != 0 {
			return c
		}
		return cmp.Compare(y.length, x.length)
	})

	annotations := make([]entity.Annotation, 0, len(order))
	maxEnd := 0
	for _, g := range order {
		if g.start < maxEnd {
			continue
		}
		annotations = append(annotations, entity.Annotation{
			Start:    g.start,
			Length:   g.length,
			Entities: a.orderInterpretations(g.items),
		})
		maxEnd = g.start + g.length
	}
	return annotations
}

// orderInterpretations sorts a span's entities by descending confidence,
// breaking ties with the type priority, and collapses duplicate types to
// their highest-confidence occurrence.
func (a *Assembler) orderInterpretations(items []Scored) []entity.Entity {
	slices.SortFunc(items, func(x, y Scored) int {
		if c := cmp.Compare(y.Confidence, x.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.priority[x.Entity.Type()], a.priority[y.Entity.Type()])
	})

	out := make([]entity.Entity, 0, len(items))
	seen := make(map[entity.Type]bool, len(items))
	for _, it := range items {
		t := it.Entity.Type()
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, it.Entity)
	}
	return out
}
