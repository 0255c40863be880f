package competency

import (
	"math"

	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// Tunable constants for the CPI model. Values are deliberate choices, not
// inferred legacy behavior; overridable through config at engine construction.
const (
	// ScorePrecision is the number of decimals scores and the CPI are
	// rounded to.
	ScorePrecision = 2

	// DefaultDriftWindow is the number of most recent challenge evaluations
	// forming the "recent" window for drift detection.
	DefaultDriftWindow = 5

	// DefaultDriftThreshold is the absolute divergence, in score points,
	// between the recent window's mean and the historical baseline mean that
	// flags drift.
	DefaultDriftThreshold = 15.0
)

// CPIModel names the index formula in effect, so downstream consumers can
// detect formula changes across recomputations.
const CPIModel = "equal-weight-mean/v1"

// CPIResult is the derived performance index for one student.
type CPIResult struct {
	CPI           *float64 `json:"cpi"`
	Model         string   `json:"model"`
	DriftDetected bool     `json:"driftDetected"`
}

// Engine computes competency snapshots and the CPI. The zero value is not
// usable; construct with NewEngine.
type Engine struct {
	driftWindow    int
	driftThreshold float64
}

// NewEngine creates an engine with the given drift tuning. Non-positive
// values fall back to the defaults.
func NewEngine(driftWindow int, driftThreshold float64) *Engine {
	if driftWindow <= 0 {
		driftWindow = DefaultDriftWindow
	}
	if driftThreshold <= 0 {
		driftThreshold = DefaultDriftThreshold
	}
	return &Engine{driftWindow: driftWindow, driftThreshold: driftThreshold}
}

// DefaultEngine returns an engine with the documented default constants.
func DefaultEngine() *Engine {
	return NewEngine(DefaultDriftWindow, DefaultDriftThreshold)
}

// Aggregate recomputes the full competency snapshot for a student from its
// confirmed challenge_evaluated events. The returned slice always enumerates
// the complete canonical taxonomy in fixed order: competencies without
// observations carry a nil score and StatusNotAssessed.
func (e *Engine) Aggregate(studentID shared.StudentID, events []*ledger.Event) ([]Record, error) {
	sums := make(map[Competency]float64, len(canonical))
	counts := make(map[Competency]int, len(canonical))

	for _, ev := range events {
		if ev.EventType != ledger.EventChallengeEvaluated || !ev.IsConfirmed() {
			continue
		}
		scores, err := ChallengeScores(ev)
		if err != nil {
			return nil, err
		}
		for _, s := range scores {
			sums[s.Competency] += s.Score
			counts[s.Competency]++
		}
	}

	records := make([]Record, 0, len(canonical))
	for _, c := range canonical {
		if n := counts[c]; n > 0 {
			mean := round(sums[c] / float64(n))
			records = append(records, Record{
				StudentID:    studentID,
				Competency:   c,
				Score:        &mean,
				Status:       StatusStable,
				Observations: n,
			})
			continue
		}
		records = append(records, Record{
			StudentID:  studentID,
			Competency: c,
			Status:     StatusNotAssessed,
		})
	}

	return records, nil
}

// ComputeCPI derives the scalar performance index from the event set.
// CPI is the equal-weighted mean of per-competency means over assessed
// competencies; a student with no assessed competencies gets a nil CPI.
// Drift compares the mean of the most recent window of challenge evaluations
// against the mean of all evaluations before that window.
func (e *Engine) ComputeCPI(studentID shared.StudentID, events []*ledger.Event) (*CPIResult, error) {
	records, err := e.Aggregate(studentID, events)
	if err != nil {
		return nil, err
	}

	result := &CPIResult{Model: CPIModel}

	sum := 0.0
	n := 0
	for _, r := range records {
		if r.Score != nil {
			sum += *r.Score
			n++
		}
	}
	if n > 0 {
		cpi := round(sum / float64(n))
		result.CPI = &cpi
	}

	drift, err := e.detectDrift(events)
	if err != nil {
		return nil, err
	}
	result.DriftDetected = drift

	return result, nil
}

// detectDrift flags a divergence between recent and historical performance.
// Each challenge evaluation contributes one overall mean; the recent window's
// average is compared against the average of everything before it.
func (e *Engine) detectDrift(events []*ledger.Event) (bool, error) {
	var perEvent []float64
	for _, ev := range events {
		if ev.EventType != ledger.EventChallengeEvaluated || !ev.IsConfirmed() {
			continue
		}
		scores, err := ChallengeScores(ev)
		if err != nil {
			return false, err
		}
		if len(scores) == 0 {
			continue
		}
		total := 0.0
		for _, s := range scores {
			total += s.Score
		}
		perEvent = append(perEvent, total/float64(len(scores)))
	}

	// Not enough history to form both a window and a baseline.
	if len(perEvent) <= e.driftWindow {
		return false, nil
	}

	recent := mean(perEvent[len(perEvent)-e.driftWindow:])
	baseline := mean(perEvent[:len(perEvent)-e.driftWindow])

	return math.Abs(recent-baseline) > e.driftThreshold, nil
}

// ScorePair is one (competency, score) observation inside a challenge
// evaluation payload.
type ScorePair struct {
	Competency Competency
	Score      float64
}

// ChallengeScores extracts the per-competency scores from a
// challenge_evaluated event.
func ChallengeScores(e *ledger.Event) ([]ScorePair, error) {
	return ParseScores(e.Payload)
}

// ParseScores extracts per-competency scores from a challenge_evaluated
// payload. Expected shape:
//
//	{"scores": [{"competency": "critical-thinking", "score": 80}, ...]}
//
// Names outside the canonical taxonomy and scores outside the normalized
// scale are rejected; the same parse runs at the append boundary, so stored
// events never fail it.
func ParseScores(payload map[string]interface{}) ([]ScorePair, error) {
	raw, ok := payload["scores"]
	if !ok {
		return nil, ledger.ErrInvalidPayload
	}

	items, err := asSlice(raw)
	if err != nil {
		return nil, err
	}

	pairs := make([]ScorePair, 0, len(items))
	for _, item := range items {
		entry, err := asMap(item)
		if err != nil {
			return nil, err
		}
		name, _ := entry["competency"].(string)
		comp, err := Parse(name)
		if err != nil {
			return nil, err
		}
		score, ok := asFloat(entry["score"])
		if !ok || !ValidScore(score) {
			return nil, shared.NewDomainError("competency", "ChallengeScores",
				shared.ErrValueOutOfRange, "score outside normalized scale")
		}
		pairs = append(pairs, ScorePair{Competency: comp, Score: score})
	}

	return pairs, nil
}

func asSlice(v interface{}) ([]interface{}, error) {
	switch s := v.(type) {
	case []interface{}:
		return s, nil
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, nil
	default:
		return nil, ledger.ErrInvalidPayload
	}
}

func asMap(v interface{}) (map[string]interface{}, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, ledger.ErrInvalidPayload
	}
	return m, nil
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round(v float64) float64 {
	shift := math.Pow(10, ScorePrecision)
	return math.Round(v*shift) / shift
}
