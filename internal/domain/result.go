package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Recommendation is the closed set of actions an analyst can recommend.
type Recommendation string

const (
	// RecommendationBuy signals a positive outlook on the subject.
	RecommendationBuy Recommendation = "buy"

	// RecommendationHold is the neutral action. It is also the default
	// when a recommendation vote ties or carries no tallies.
	RecommendationHold Recommendation = "hold"

	// RecommendationSell signals a negative outlook on the subject.
	RecommendationSell Recommendation = "sell"
)

// IsValid reports whether r is one of the known recommendation values.
func (r Recommendation) IsValid() bool {
	switch r {
	case RecommendationBuy, RecommendationHold, RecommendationSell:
		return true
	}
	return false
}

// String returns the lowercase wire form of the recommendation.
func (r Recommendation) String() string { return string(r) }

// RiskLevel is an ordered severity scale: RiskLow < RiskMedium < RiskHigh.
// The zero value means the analyst made no assessment and never validates.
type RiskLevel int

// Risk severity levels in ascending order. Consolidation takes the
// conservative maximum across contributors, so any RiskHigh wins.
const (
	RiskUnspecified RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
)

// IsValid reports whether l is an assessed severity.
func (l RiskLevel) IsValid() bool { return l >= RiskLow && l <= RiskHigh }

// String returns the lowercase name of the risk level.
func (l RiskLevel) String() string {
	switch l {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	}
	return "unspecified"
}

// ParseRiskLevel converts the lowercase wire form back to a RiskLevel.
// The empty string parses to RiskUnspecified.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	case "", "unspecified":
		return RiskUnspecified, nil
	}
	return RiskUnspecified, fmt.Errorf("unknown risk level %q", s)
}

// MarshalJSON encodes the risk level as its string name.
func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a risk level from its string name.
func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// AnalysisResult is the output of a single analyst for one request.
// Only the recommendation and confidence are required; everything else
// enriches the consolidated decision when present.
type AnalysisResult struct {
	// Recommendation is the analyst's suggested action.
	Recommendation Recommendation `json:"recommendation"`

	// Confidence expresses how certain the analyst is, in [0, 1].
	Confidence float64 `json:"confidence"`

	// Risk is the analyst's severity assessment, if it made one.
	Risk RiskLevel `json:"risk,omitempty"`

	// TargetPrice is the analyst's price objective. Nil means the analyst
	// offered none; non-positive values are skipped by aggregation.
	TargetPrice *float64 `json:"target_price,omitempty"`

	// Conclusion is a one-line summary of the analyst's reasoning.
	Conclusion string `json:"conclusion,omitempty"`

	// KeyPoints lists the findings supporting the recommendation, in the
	// analyst's own order.
	KeyPoints []string `json:"key_points,omitempty"`

	// Warnings lists caveats and risk notes, in the analyst's own order.
	Warnings []string `json:"warnings,omitempty"`

	// RawData carries an analyst-specific payload, attached verbatim to
	// the consolidated breakdown for auditability.
	RawData map[string]any `json:"raw_data,omitempty"`
}

// Validate reports whether the result is usable for aggregation: a known
// recommendation plus a confidence inside [0, 1]. Invalid results are
// discarded at the dispatch boundary, never repaired.
func (r AnalysisResult) Validate() error {
	if !r.Recommendation.IsValid() {
		return fmt.Errorf("recommendation %q: %w", r.Recommendation, ErrInvalidResult)
	}
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]: %w", r.Confidence, ErrInvalidResult)
	}
	return nil
}
