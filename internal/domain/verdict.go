package domain

import "fmt"

// Verdict is the verifier's classification of the accumulated results.
type Verdict string

const (
	VerdictApproved         Verdict = "APPROVED"
	VerdictNeedsImprovement Verdict = "NEEDS_IMPROVEMENT"
	VerdictRejected         Verdict = "REJECTED"
)

// Quality dimensions scored by the verifier. The set is fixed: the
// aggregate is the arithmetic mean of exactly these five.
const (
	DimCorrectness  = "correctness"
	DimCompleteness = "completeness"
	DimClarity      = "clarity"
	DimCompliance   = "compliance"
	DimUsefulness   = "usefulness"
)

// Dimensions lists the fixed scoring dimensions in canonical order.
func Dimensions() []string {
	return []string{DimCorrectness, DimCompleteness, DimClarity, DimCompliance, DimUsefulness}
}

// Verdict thresholds, fixed by design.
const (
	ApproveThreshold = 0.8
	RejectThreshold  = 0.5
)

// VerdictForScore maps an aggregate score onto a verdict.
func VerdictForScore(aggregate float64) Verdict {
	switch {
	case aggregate >= ApproveThreshold:
		return VerdictApproved
	case aggregate >= RejectThreshold:
		return VerdictNeedsImprovement
	default:
		return VerdictRejected
	}
}

// VerificationResult is the quality judgment produced once per iteration.
type VerificationResult struct {
	Scores      map[string]float64 `json:"scores"`
	Aggregate   float64            `json:"aggregate"`
	Verdict     Verdict            `json:"verdict"`
	Issues      []string           `json:"issues,omitempty"`
	Suggestions []string           `json:"suggestions,omitempty"`
	Deliverable bool               `json:"deliverable"`
}

// NewVerificationResult builds a result from per-dimension scores,
// computing the aggregate and verdict. Every fixed dimension must be
// present and in [0,1].
func NewVerificationResult(scores map[string]float64, issues, suggestions []string) (*VerificationResult, error) {
	var sum float64
	for _, dim := range Dimensions() {
		score, ok := scores[dim]
		if !ok {
			return nil, fmt.Errorf("missing dimension %q", dim)
		}
		if score < 0 || score > 1 {
			return nil, fmt.Errorf("dimension %q out of range: %v", dim, score)
		}
		sum += score
	}
	aggregate := sum / float64(len(Dimensions()))
	verdict := VerdictForScore(aggregate)
	return &VerificationResult{
		Scores:      scores,
		Aggregate:   aggregate,
		Verdict:     verdict,
		Issues:      issues,
		Suggestions: suggestions,
		Deliverable: verdict == VerdictApproved,
	}, nil
}

// FailClosed is the verification applied when the verifier response is
// malformed: NEEDS_IMPROVEMENT with aggregate 0.0, never a silent approve.
func FailClosed(reason string) *VerificationResult {
	scores := make(map[string]float64, len(Dimensions()))
	for _, dim := range Dimensions() {
		scores[dim] = 0
	}
	return &VerificationResult{
		Scores:      scores,
		Aggregate:   0,
		Verdict:     VerdictNeedsImprovement,
		Issues:      []string{reason},
		Deliverable: false,
	}
}
