package application

import (
	"fmt"
	"math"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
)

// voteOrder fixes the scan order over recommendation tallies. The vote
// outcome is order-independent because only a unique maximum wins, but a
// fixed order keeps the scan itself reproducible.
var voteOrder = []domain.Recommendation{
	domain.RecommendationBuy,
	domain.RecommendationHold,
	domain.RecommendationSell,
}

// Aggregator folds a frozen PartialResultSet and the weights from the
// run's roster snapshot into one ConsolidatedResult. Every rule is
// deterministic and order-independent over the set: sums and maxima,
// never sequence-dependent scans.
//
// Rules:
//   - confidence: Σ(w·c) / Σ(w), or 0 when all weights are zero
//   - recommendation: highest Σ(w·c) tally per value; ties resolve to
//     the neutral recommendation
//   - risk: conservative maximum across contributors
//   - target price: Σ(w·c·price) / Σ(w·c) over strictly positive prices,
//     absent when none exist or their weight sum is zero
//   - key points and warnings: concatenated with provenance in snapshot
//     order, no deduplication
type Aggregator struct {
	neutral domain.Recommendation
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithNeutralRecommendation overrides the recommendation a tied vote
// resolves to. The default is domain.RecommendationHold.
func WithNeutralRecommendation(rec domain.Recommendation) AggregatorOption {
	return func(a *Aggregator) {
		if rec.IsValid() {
			a.neutral = rec
		}
	}
}

// NewAggregator creates an aggregator with the neutral recommendation
// set to Hold unless overridden.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{neutral: domain.RecommendationHold}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate builds the consolidated decision for symbol from the set's
// contributors and the snapshot's weights. It fails with ErrNoResults
// when the set is empty: a run with zero successful analysts is a hard
// failure, never a default verdict.
func (a *Aggregator) Aggregate(symbol string, snapshot []RegisteredAnalyst, set *domain.PartialResultSet) (domain.ConsolidatedResult, error) {
	ids := set.IDs()
	if len(ids) == 0 {
		return domain.ConsolidatedResult{}, fmt.Errorf("aggregating %s: %w", symbol, domain.ErrNoResults)
	}

	weights := make(map[string]float64, len(snapshot))
	for _, ra := range snapshot {
		weights[ra.ID] = ra.Weight
	}

	var (
		weightSum      float64
		confidenceSum  float64
		priceSum       float64
		priceWeightSum float64
		maxRisk        domain.RiskLevel
		tallies        = make(map[domain.Recommendation]float64, len(voteOrder))
		keyPoints      []domain.Attribution
		warnings       []domain.Attribution
		breakdown      = make(map[string]domain.AnalystBreakdown, len(ids))
	)

	for _, id := range ids {
		res, _ := set.Get(id)

		w, ok := weights[id]
		if !ok {
			// Sets built outside a dispatch may carry IDs the snapshot
			// never held.
			w = DefaultWeight
		}
		wc := w * res.Confidence

		weightSum += w
		confidenceSum += wc
		tallies[res.Recommendation] += wc

		if res.Risk.IsValid() && res.Risk > maxRisk {
			maxRisk = res.Risk
		}

		if res.TargetPrice != nil && *res.TargetPrice > 0 {
			priceSum += wc * *res.TargetPrice
			priceWeightSum += wc
		}

		for _, point := range res.KeyPoints {
			keyPoints = append(keyPoints, domain.Attribution{Analyst: id, Text: point})
		}
		for _, warning := range res.Warnings {
			warnings = append(warnings, domain.Attribution{Analyst: id, Text: warning})
		}

		breakdown[id] = domain.AnalystBreakdown{
			Recommendation: res.Recommendation,
			Confidence:     res.Confidence,
			Risk:           res.Risk,
			TargetPrice:    res.TargetPrice,
			Conclusion:     res.Conclusion,
			RawData:        res.RawData,
		}
	}

	var confidence float64
	if weightSum > 0 {
		confidence = confidenceSum / weightSum
	}

	var targetPrice *float64
	if priceWeightSum > 0 {
		p := priceSum / priceWeightSum
		targetPrice = &p
	}

	return domain.ConsolidatedResult{
		Symbol:         symbol,
		Recommendation: a.vote(tallies),
		Confidence:     confidence,
		Risk:           maxRisk,
		TargetPrice:    targetPrice,
		KeyPoints:      keyPoints,
		Warnings:       warnings,
		Contributors:   len(ids),
		Breakdown:      breakdown,
		GeneratedAt:    time.Now(),
	}, nil
}

// vote picks the recommendation with the highest weighted tally.
// A maximum shared by more than one recommendation resolves to the
// neutral recommendation.
func (a *Aggregator) vote(tallies map[domain.Recommendation]float64) domain.Recommendation {
	winner := a.neutral
	maxTally := math.Inf(-1)
	tied := false

	for _, rec := range voteOrder {
		tally, ok := tallies[rec]
		if !ok {
			continue
		}
		switch {
		case tally > maxTally:
			maxTally = tally
			winner = rec
			tied = false
		case tally == maxTally:
			tied = true
		}
	}

	if tied {
		return a.neutral
	}
	return winner
}
