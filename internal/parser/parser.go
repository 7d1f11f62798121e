package parser

import (
	"encoding/json"

	"github.com/lexicard/lexicard-api/internal/domain"
)

type shapeKind int

const (
	shapeSingle shapeKind = iota
	shapeArray
)

// Shape describes what the caller asked the model for.
type Shape struct {
	kind shapeKind
	n    int
}

// Single expects one enrichment object.
func Single() Shape {
	return Shape{kind: shapeSingle, n: 1}
}

// Array expects an array of n enrichment objects, positionally aligned with
// the words in the prompt. Negative n is treated as zero.
func Array(n int) Shape {
	if n < 0 {
		n = 0
	}
	return Shape{kind: shapeArray, n: n}
}

// Len is the number of entries a Result for this shape always holds.
func (s Shape) Len() int {
	return s.n
}

// IsArray reports whether the shape is Array(n).
func (s Shape) IsArray() bool {
	return s.kind == shapeArray
}

// Recovery grades how much of the expected structure was found.
type Recovery int

const (
	// RecoveryFull means every expected entry carries data.
	RecoveryFull Recovery = iota
	// RecoveryPartial means some entries are empty defaults.
	RecoveryPartial
	// RecoveryNone means nothing usable was found.
	RecoveryNone
)

func (r Recovery) String() string {
	switch r {
	case RecoveryFull:
		return "full"
	case RecoveryPartial:
		return "partial"
	default:
		return "none"
	}
}

// Result holds exactly Shape.Len() entries. Entries the reply did not
// provide are empty (see domain.EnrichmentEntry.IsEmpty).
type Result struct {
	Entries   []domain.EnrichmentEntry
	Recovered int
	Recovery  Recovery
}

// First returns the first entry, or an empty one for Array(0).
func (r Result) First() domain.EnrichmentEntry {
	if len(r.Entries) == 0 {
		return domain.EnrichmentEntry{}
	}
	return r.Entries[0]
}

// Parse extracts enrichment entries of the given shape from text.
//
// For arrays it looks for the first top-level [...] span, then for the first
// nested array of entry objects (a batch wrapped as {"words": [...]}); when
// there is neither it falls back to single-object extraction and places the
// object in slot 0.
// A found array that does not decode yields all-empty entries. Individual
// array elements that do not decode become empty entries in place, so the
// remaining entries keep their positions. Extra entries are dropped and
// missing ones padded.
func Parse(text string, shape Shape) Result {
	body := stripFences(text)

	var raws []*rawEntry
	if shape.IsArray() {
		var found bool
		raws, found = decodeArray(body)
		if !found {
			if obj, ok := decodeObject(body); ok {
				raws = []*rawEntry{obj}
			}
		}
	} else if obj, ok := decodeObject(body); ok {
		raws = []*rawEntry{obj}
	}

	entries := make([]domain.EnrichmentEntry, shape.Len())
	recovered := 0
	for i := range entries {
		if i >= len(raws) || raws[i] == nil {
			continue
		}
		entries[i] = raws[i].normalize()
		if !entries[i].IsEmpty() {
			recovered++
		}
	}

	return Result{
		Entries:   entries,
		Recovered: recovered,
		Recovery:  grade(recovered, len(entries)),
	}
}

func grade(recovered, expected int) Recovery {
	switch {
	case recovered == expected:
		return RecoveryFull
	case recovered == 0:
		return RecoveryNone
	default:
		return RecoveryPartial
	}
}

// decodeArray reports whether a top-level array was found and, if it
// decoded, one raw entry per element (nil for elements that failed).
func decodeArray(body string) ([]*rawEntry, bool) {
	span, ok := topLevelArray(body)
	if !ok {
		if span, ok = nestedEntryArray(body); !ok {
			return nil, false
		}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(removeTrailingCommas(span)), &elems); err != nil {
		return nil, true
	}

	raws := make([]*rawEntry, len(elems))
	for i, elem := range elems {
		var r rawEntry
		if err := json.Unmarshal(elem, &r); err == nil {
			raws[i] = &r
		}
	}
	return raws, true
}

// decodeObject tries each object candidate in order of specificity and
// returns the first one that decodes.
func decodeObject(body string) (*rawEntry, bool) {
	for _, candidate := range objectCandidates(body) {
		var r rawEntry
		if err := json.Unmarshal([]byte(removeTrailingCommas(candidate)), &r); err == nil {
			return &r, true
		}
	}
	return nil, false
}
