package domain

import "time"

// Attribution ties a key point or warning back to the analyst that
// produced it. Entries are never deduplicated; two analysts making the
// same point is itself signal.
type Attribution struct {
	// Analyst is the contributing analyst's identifier.
	Analyst string `json:"analyst"`

	// Text is the point exactly as the analyst stated it.
	Text string `json:"text"`
}

// AnalystBreakdown is the per-analyst slice of a consolidated decision,
// preserved verbatim for auditability.
type AnalystBreakdown struct {
	// Recommendation is the analyst's suggested action.
	Recommendation Recommendation `json:"recommendation"`

	// Confidence is the analyst's certainty, in [0, 1].
	Confidence float64 `json:"confidence"`

	// Risk is the analyst's severity assessment, if it made one.
	Risk RiskLevel `json:"risk,omitempty"`

	// TargetPrice is the analyst's price objective, if it offered one.
	TargetPrice *float64 `json:"target_price,omitempty"`

	// Conclusion is the analyst's one-line summary.
	Conclusion string `json:"conclusion,omitempty"`

	// RawData is the analyst-specific payload, untouched.
	RawData map[string]any `json:"raw_data,omitempty"`
}

// ConsolidatedResult is the single decision derived from a frozen
// PartialResultSet. It is built exactly once per run by the aggregation
// step and never mutated afterward.
type ConsolidatedResult struct {
	// Symbol is the subject the decision is about.
	Symbol string `json:"symbol"`

	// Recommendation is the weighted-vote winner across contributors.
	Recommendation Recommendation `json:"recommendation"`

	// Confidence is the weighted mean confidence across contributors.
	Confidence float64 `json:"confidence"`

	// Risk is the most severe level any contributor reported.
	Risk RiskLevel `json:"risk,omitempty"`

	// TargetPrice is the weighted mean of the strictly positive target
	// prices contributors supplied. Nil when none did.
	TargetPrice *float64 `json:"target_price,omitempty"`

	// KeyPoints concatenates every contributor's key points with
	// provenance, in the run's snapshot order.
	KeyPoints []Attribution `json:"key_points,omitempty"`

	// Warnings concatenates every contributor's warnings with
	// provenance, in the run's snapshot order.
	Warnings []Attribution `json:"warnings,omitempty"`

	// Contributors counts the analysts whose valid results made the
	// deadline.
	Contributors int `json:"contributors"`

	// Breakdown preserves each contributor's result verbatim, keyed by
	// analyst identifier.
	Breakdown map[string]AnalystBreakdown `json:"breakdown"`

	// GeneratedAt records when the aggregation ran.
	GeneratedAt time.Time `json:"generated_at"`
}
