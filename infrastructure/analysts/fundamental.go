package analysts

import (
	"context"
	"fmt"

	"github.com/ahrav/go-quorum/infrastructure/marketdata"
	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Compile-time check that FundamentalAnalyst implements ports.Analyst.
var _ ports.Analyst = (*FundamentalAnalyst)(nil)

// DefaultFairPE is the earnings multiple treated as fair value when the
// configuration does not override it.
const DefaultFairPE = 18.0

// Sub-score weights: valuation dominates, growth next, leverage and
// profitability share the rest. They sum to 1 so the composite stays in
// [-1, 1].
const (
	valuationWeight     = 0.35
	leverageWeight      = 0.20
	growthWeight        = 0.25
	profitabilityWeight = 0.20
)

// recommendationBand is the composite-score magnitude below which the
// fundamental picture is considered mixed and the analyst holds.
const recommendationBand = 0.15

// Leverage thresholds on debt-to-equity: below comfortable is a clean
// balance sheet, above stretched flags risk.
const (
	leverageComfortable = 0.5
	leverageStretched   = 1.5
)

// FundamentalConfig defines the valuation anchor for the
// FundamentalAnalyst.
type FundamentalConfig struct {
	// FairPE is the price-to-earnings multiple scored as fair value.
	// Cheaper multiples score positive, richer ones negative.
	FairPE float64 `yaml:"fair_pe" json:"fair_pe" validate:"required,gt=0"`
}

// DefaultFundamentalConfig returns a FundamentalConfig anchored at a
// fair P/E of 18.
func DefaultFundamentalConfig() FundamentalConfig {
	return FundamentalConfig{FairPE: DefaultFairPE}
}

// FundamentalAnalyst derives a recommendation from a company snapshot:
// valuation against a fair P/E band, balance-sheet leverage, revenue
// growth and profit margin each produce a sub-score in [-1, 1], and the
// weighted sum picks the action. The composite magnitude scales the
// confidence.
//
// The analyst is stateless and safe for concurrent use.
type FundamentalAnalyst struct {
	name     string
	config   FundamentalConfig
	provider marketdata.Provider
}

// NewFundamentalAnalyst creates a FundamentalAnalyst with the specified
// configuration. Returns an error if the name is empty, the provider is
// nil, or configuration validation fails.
func NewFundamentalAnalyst(name string, config FundamentalConfig, provider marketdata.Provider) (*FundamentalAnalyst, error) {
	if name == "" {
		return nil, ErrEmptyAnalystName
	}
	if provider == nil {
		return nil, ErrNilProvider
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &FundamentalAnalyst{name: name, config: config, provider: provider}, nil
}

// NewFundamentalFromConfig creates a FundamentalAnalyst from a
// parameters map, applying defaults for absent keys. This is the factory
// adapter used by the analyst registry.
func NewFundamentalFromConfig(id string, params map[string]any, provider marketdata.Provider) (*FundamentalAnalyst, error) {
	cfg := DefaultFundamentalConfig()
	cfg.FairPE = floatParam(params, "fair_pe", cfg.FairPE)
	return NewFundamentalAnalyst(id, cfg, provider)
}

// Name returns the analyst's unique identifier.
func (fa *FundamentalAnalyst) Name() string { return fa.name }

// Validate checks that the analyst is properly configured.
func (fa *FundamentalAnalyst) Validate() error {
	if fa.provider == nil {
		return ErrNilProvider
	}
	if err := validate.Struct(fa.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Analyze fetches the fundamentals snapshot for the request's symbol and
// scores it. Missing figures score neutral rather than failing the
// analysis; only a provider error aborts.
func (fa *FundamentalAnalyst) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	fund, err := fa.provider.Fundamentals(ctx, req.Symbol)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyst %s: failed to fetch fundamentals for %s: %w", fa.name, req.Symbol, err)
	}

	var keyPoints, warnings []string

	pe := fund.PERatio.InexactFloat64()
	eps := fund.EPS.InexactFloat64()
	debtToEquity := fund.DebtToEquity.InexactFloat64()
	growth := fund.RevenueGrowth.InexactFloat64()
	margin := fund.ProfitMargin.InexactFloat64()

	// Valuation: fair P/E scores zero, half the multiple scores +0.5, a
	// doubled multiple floors at -1.
	var valuation float64
	if fund.HasEarnings() && pe > 0 {
		valuation = clamp((fa.config.FairPE-pe)/fa.config.FairPE, -1, 1)
		keyPoints = append(keyPoints, fmt.Sprintf("P/E %.1f against fair value %.1f", pe, fa.config.FairPE))
	} else {
		warnings = append(warnings, "no positive earnings: valuation scored neutral")
	}

	// Leverage: comfortable debt-to-equity scores +1, stretched and
	// beyond scores negative on a linear ramp.
	var leverage float64
	if fund.HasLeverage() {
		midpoint := (leverageComfortable + leverageStretched) / 2
		halfRange := (leverageStretched - leverageComfortable) / 2
		leverage = clamp((midpoint-debtToEquity)/halfRange, -1, 1)
		keyPoints = append(keyPoints, fmt.Sprintf("debt-to-equity %.2f", debtToEquity))
	}

	// Growth: 20% revenue growth saturates the positive score.
	growthScore := clamp(growth/0.20, -1, 1)
	keyPoints = append(keyPoints, fmt.Sprintf("revenue growth %+.1f%%", growth*100))

	// Profitability: a 5% margin is the breakeven score, 20% saturates.
	profitability := clamp((margin-0.05)/0.15, -1, 1)
	keyPoints = append(keyPoints, fmt.Sprintf("profit margin %.1f%%", margin*100))

	composite := valuationWeight*valuation +
		leverageWeight*leverage +
		growthWeight*growthScore +
		profitabilityWeight*profitability

	rec := domain.RecommendationHold
	switch {
	case composite > recommendationBand:
		rec = domain.RecommendationBuy
	case composite < -recommendationBand:
		rec = domain.RecommendationSell
	}

	confidence := clamp(0.5+0.45*abs(composite), 0, 0.95)

	risk := domain.RiskLow
	stretched := fund.HasLeverage() && debtToEquity > leverageStretched
	shrinking := growth < 0
	if stretched {
		risk = domain.RiskMedium
		warnings = append(warnings, fmt.Sprintf("debt-to-equity %.2f above %.1f", debtToEquity, leverageStretched))
	}
	if shrinking {
		risk = domain.RiskMedium
		warnings = append(warnings, fmt.Sprintf("revenue shrinking %.1f%% year over year", abs(growth)*100))
	}
	if stretched && shrinking {
		risk = domain.RiskHigh
	}

	// Earnings times the fair multiple; no earnings means no objective.
	var target *float64
	if eps > 0 {
		v := eps * fa.config.FairPE
		target = &v
	}

	return domain.AnalysisResult{
		Recommendation: rec,
		Confidence:     confidence,
		Risk:           risk,
		TargetPrice:    target,
		Conclusion: fmt.Sprintf("fundamental composite %+.2f for %s (valuation %+.2f, growth %+.2f)",
			composite, req.Symbol, valuation, growthScore),
		KeyPoints: keyPoints,
		Warnings:  warnings,
		RawData: map[string]any{
			"composite":      composite,
			"valuation":      valuation,
			"leverage":       leverage,
			"growth":         growthScore,
			"profitability":  profitability,
			"pe_ratio":       pe,
			"eps":            eps,
			"debt_to_equity": debtToEquity,
		},
	}, nil
}

// abs returns |v|.
func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
