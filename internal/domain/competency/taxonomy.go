// Package competency aggregates confirmed assessment events into a normalized
// competency profile and derives the Competency Performance Index (CPI).
// Everything here is a pure function of the input event set: recomputation
// from the same ledger state always yields the same output, which is what
// makes cached snapshots safely regenerable rather than authoritative.
package competency

import (
	"strings"

	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// Competency is one canonical assessed skill domain.
type Competency string

// The canonical taxonomy. Every competency snapshot must enumerate exactly
// this set: present competencies keep their computed score, absent ones appear
// with a nil score and StatusNotAssessed. Ordering is fixed and is the
// ordering of returned snapshots.
const (
	ConceptualUnderstanding Competency = "conceptual-understanding"
	CriticalThinking        Competency = "critical-thinking"
	RealWorldApplication    Competency = "real-world-application"
	ObservationInference    Competency = "observation-inference"
	Communication           Competency = "communication"
	Collaboration           Competency = "collaboration"
	Creativity              Competency = "creativity"
	DigitalLiteracy         Competency = "digital-literacy"
)

var canonical = []Competency{
	ConceptualUnderstanding,
	CriticalThinking,
	RealWorldApplication,
	ObservationInference,
	Communication,
	Collaboration,
	Creativity,
	DigitalLiteracy,
}

// Canonical returns the full taxonomy in fixed order.
func Canonical() []Competency {
	out := make([]Competency, len(canonical))
	copy(out, canonical)
	return out
}

// IsCanonical checks membership in the taxonomy.
func (c Competency) IsCanonical() bool {
	for _, k := range canonical {
		if c == k {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (c Competency) String() string {
	return string(c)
}

// Parse validates a raw competency name against the taxonomy.
func Parse(s string) (Competency, error) {
	c := Competency(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsCanonical() {
		return "", shared.NewDomainError("competency", "Parse", shared.ErrInvalidInput,
			"competency name outside canonical taxonomy: "+s)
	}
	return c, nil
}

// Score boundaries on the normalized scale.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// ValidScore checks the normalized score range.
func ValidScore(v float64) bool {
	return v >= MinScore && v <= MaxScore
}
