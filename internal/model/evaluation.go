package model

// EvaluationLabel is the verdict on how well the knowledge base backs a
// snippet's claim.
type EvaluationLabel string

const (
	Supported          EvaluationLabel = "Supported"
	PartiallySupported EvaluationLabel = "Partially Supported"
	NotSupported       EvaluationLabel = "Not Supported"
	Contradicted       EvaluationLabel = "Contradicted"
	NoEvidence         EvaluationLabel = "No Evidence"
	Unknown            EvaluationLabel = "Unknown"
)

// ParseEvaluationLabel maps a raw evaluator label to an EvaluationLabel,
// falling back to Unknown rather than failing.
func ParseEvaluationLabel(s string) EvaluationLabel {
	switch EvaluationLabel(s) {
	case Supported, PartiallySupported, NotSupported, Contradicted, NoEvidence, Unknown:
		return EvaluationLabel(s)
	default:
		return Unknown
	}
}

// SupportedScoreFloor is the support score at and above which the label is
// forced to Supported, whatever the raw evaluation said.
const SupportedScoreFloor = 0.9

// ContradictedScore is the reserved score for Contradicted evaluations.
const ContradictedScore = -1.0

// Evaluation is the terminal artifact for one snippet: the verdict, a support
// score in [-1.0, 1.0], the evaluator's reasoning, and, for Partially
// Supported only, a delta analysis of what the evidence does not cover.
type Evaluation struct {
	Snippet
	Evidence      []string        `json:"evidence"`
	Evaluation    EvaluationLabel `json:"evaluation"`
	SupportScore  float64         `json:"support_score"`
	Reason        string          `json:"reason"`
	DeltaAnalysis string          `json:"delta_analysis,omitempty"`
}
