package analysts

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ahrav/go-quorum/infrastructure/marketdata"
	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Compile-time check that TechnicalAnalyst implements ports.Analyst.
var _ ports.Analyst = (*TechnicalAnalyst)(nil)

// Default analysis windows for the technical analyst. The 12/26 moving
// average pair and 14-period RSI are the conventional settings.
const (
	DefaultFastPeriod     = 12
	DefaultSlowPeriod     = 26
	DefaultRSIPeriod      = 14
	DefaultMomentumPeriod = 10
	DefaultCandleLimit    = 90
)

// RSI bands beyond which the market is considered stretched.
const (
	rsiOverbought = 70
	rsiOversold   = 30
)

// momentumRiskThreshold is the absolute momentum percentage above which
// the analyst flags elevated volatility.
const momentumRiskThreshold = 8.0

// TechnicalConfig defines the analysis windows for the TechnicalAnalyst.
// All fields are validated during analyst creation.
type TechnicalConfig struct {
	// FastPeriod is the window of the fast moving average, in candles.
	FastPeriod int `yaml:"fast_period" json:"fast_period" validate:"required,min=1"`

	// SlowPeriod is the window of the slow moving average, in candles.
	// It must exceed FastPeriod for the crossover to mean anything.
	SlowPeriod int `yaml:"slow_period" json:"slow_period" validate:"required,gtfield=FastPeriod"`

	// RSIPeriod is the lookback for the relative strength index.
	RSIPeriod int `yaml:"rsi_period" json:"rsi_period" validate:"required,min=2"`

	// MomentumPeriod is the lookback for the rate-of-change signal.
	MomentumPeriod int `yaml:"momentum_period" json:"momentum_period" validate:"required,min=1"`

	// CandleLimit is how much history to request from the provider. It
	// must cover the largest analysis window.
	CandleLimit int `yaml:"candle_limit" json:"candle_limit" validate:"required,min=2"`
}

// DefaultTechnicalConfig returns a TechnicalConfig with the conventional
// 12/26 crossover, 14-period RSI and 10-period momentum.
func DefaultTechnicalConfig() TechnicalConfig {
	return TechnicalConfig{
		FastPeriod:     DefaultFastPeriod,
		SlowPeriod:     DefaultSlowPeriod,
		RSIPeriod:      DefaultRSIPeriod,
		MomentumPeriod: DefaultMomentumPeriod,
		CandleLimit:    DefaultCandleLimit,
	}
}

// TechnicalAnalyst derives a recommendation from price action alone:
// a fast/slow moving average crossover, Wilder-smoothed RSI, and
// N-period momentum, all computed in decimal arithmetic. The three
// signals vote; agreement drives the recommendation and confidence.
//
// The analyst is stateless and safe for concurrent use.
type TechnicalAnalyst struct {
	name     string
	config   TechnicalConfig
	provider marketdata.Provider
}

// NewTechnicalAnalyst creates a TechnicalAnalyst with the specified
// configuration. Returns an error if the name is empty, the provider is
// nil, or configuration validation fails.
func NewTechnicalAnalyst(name string, config TechnicalConfig, provider marketdata.Provider) (*TechnicalAnalyst, error) {
	if name == "" {
		return nil, ErrEmptyAnalystName
	}
	if provider == nil {
		return nil, ErrNilProvider
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &TechnicalAnalyst{name: name, config: config, provider: provider}, nil
}

// NewTechnicalFromConfig creates a TechnicalAnalyst from a parameters
// map, applying defaults for absent keys. This is the factory adapter
// used by the analyst registry.
func NewTechnicalFromConfig(id string, params map[string]any, provider marketdata.Provider) (*TechnicalAnalyst, error) {
	cfg := DefaultTechnicalConfig()
	cfg.FastPeriod = intParam(params, "fast_period", cfg.FastPeriod)
	cfg.SlowPeriod = intParam(params, "slow_period", cfg.SlowPeriod)
	cfg.RSIPeriod = intParam(params, "rsi_period", cfg.RSIPeriod)
	cfg.MomentumPeriod = intParam(params, "momentum_period", cfg.MomentumPeriod)
	cfg.CandleLimit = intParam(params, "candle_limit", cfg.CandleLimit)
	return NewTechnicalAnalyst(id, cfg, provider)
}

// Name returns the analyst's unique identifier.
func (ta *TechnicalAnalyst) Name() string { return ta.name }

// Validate checks that the analyst is properly configured.
func (ta *TechnicalAnalyst) Validate() error {
	if ta.provider == nil {
		return ErrNilProvider
	}
	if err := validate.Struct(ta.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Analyze fetches price history for the request's symbol and scores it.
// Each indicator casts one vote: fast SMA above slow SMA, RSI leaving an
// extreme, and positive momentum are bullish; their opposites bearish.
// The net vote picks the recommendation and scales the confidence.
func (ta *TechnicalAnalyst) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	candles, err := ta.provider.Candles(ctx, req.Symbol, ta.config.CandleLimit)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyst %s: failed to fetch candles for %s: %w", ta.name, req.Symbol, err)
	}

	minBars := ta.config.SlowPeriod
	if n := ta.config.RSIPeriod + 1; n > minBars {
		minBars = n
	}
	if n := ta.config.MomentumPeriod + 1; n > minBars {
		minBars = n
	}
	if len(candles) < minBars {
		return domain.AnalysisResult{}, fmt.Errorf("analyst %s: %w: need %d candles for %s, got %d",
			ta.name, ErrInsufficientData, minBars, req.Symbol, len(candles))
	}

	closes := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	fastSMA := trailingSMA(closes, ta.config.FastPeriod)
	slowSMA := trailingSMA(closes, ta.config.SlowPeriod)
	rsi := wilderRSI(closes, ta.config.RSIPeriod)
	momentum := momentumPct(closes, ta.config.MomentumPeriod)
	lastClose := closes[len(closes)-1]

	var bullish, bearish int
	var keyPoints, warnings []string

	switch {
	case fastSMA.GreaterThan(slowSMA):
		bullish++
		keyPoints = append(keyPoints, fmt.Sprintf("fast SMA %s above slow SMA %s (uptrend)",
			fastSMA.StringFixed(2), slowSMA.StringFixed(2)))
	case fastSMA.LessThan(slowSMA):
		bearish++
		keyPoints = append(keyPoints, fmt.Sprintf("fast SMA %s below slow SMA %s (downtrend)",
			fastSMA.StringFixed(2), slowSMA.StringFixed(2)))
	default:
		keyPoints = append(keyPoints, fmt.Sprintf("fast and slow SMA converged at %s", fastSMA.StringFixed(2)))
	}

	rsiExtreme := false
	switch {
	case rsi.LessThan(decimal.NewFromInt(rsiOversold)):
		bullish++
		rsiExtreme = true
		keyPoints = append(keyPoints, fmt.Sprintf("RSI %s oversold", rsi.StringFixed(1)))
		warnings = append(warnings, fmt.Sprintf("RSI %s signals oversold conditions", rsi.StringFixed(1)))
	case rsi.GreaterThan(decimal.NewFromInt(rsiOverbought)):
		bearish++
		rsiExtreme = true
		keyPoints = append(keyPoints, fmt.Sprintf("RSI %s overbought", rsi.StringFixed(1)))
		warnings = append(warnings, fmt.Sprintf("RSI %s signals overbought conditions", rsi.StringFixed(1)))
	default:
		keyPoints = append(keyPoints, fmt.Sprintf("RSI %s neutral", rsi.StringFixed(1)))
	}

	switch {
	case momentum.IsPositive():
		bullish++
		keyPoints = append(keyPoints, fmt.Sprintf("%d-period momentum +%s%%",
			ta.config.MomentumPeriod, momentum.StringFixed(2)))
	case momentum.IsNegative():
		bearish++
		keyPoints = append(keyPoints, fmt.Sprintf("%d-period momentum %s%%",
			ta.config.MomentumPeriod, momentum.StringFixed(2)))
	default:
		keyPoints = append(keyPoints, "momentum flat")
	}

	highMomentum := momentum.Abs().GreaterThan(decimal.NewFromFloat(momentumRiskThreshold))
	if highMomentum {
		warnings = append(warnings, fmt.Sprintf("momentum magnitude %s%% signals elevated volatility",
			momentum.Abs().StringFixed(2)))
	}

	score := bullish - bearish

	rec := domain.RecommendationHold
	switch {
	case score > 0:
		rec = domain.RecommendationBuy
	case score < 0:
		rec = domain.RecommendationSell
	}

	confidence := clamp(0.5+0.15*absInt(score), 0, 0.95)

	risk := domain.RiskLow
	if rsiExtreme {
		risk = domain.RiskMedium
	}
	if rsiExtreme && highMomentum {
		risk = domain.RiskHigh
	}

	// Half the momentum projected forward; a crude but deterministic
	// price objective.
	var target *float64
	projected := lastClose.Mul(decimal.NewFromInt(1).Add(
		momentum.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(2))))
	if projected.IsPositive() {
		v, _ := projected.Round(2).Float64()
		target = &v
	}

	return domain.AnalysisResult{
		Recommendation: rec,
		Confidence:     confidence,
		Risk:           risk,
		TargetPrice:    target,
		Conclusion: fmt.Sprintf("%d bullish vs %d bearish technical signals on %s",
			bullish, bearish, req.Symbol),
		KeyPoints: keyPoints,
		Warnings:  warnings,
		RawData: map[string]any{
			"fast_sma":     fastSMA.InexactFloat64(),
			"slow_sma":     slowSMA.InexactFloat64(),
			"rsi":          rsi.InexactFloat64(),
			"momentum_pct": momentum.InexactFloat64(),
			"last_close":   lastClose.InexactFloat64(),
			"candles":      len(candles),
		},
	}, nil
}

// trailingSMA returns the simple moving average of the last period
// closes. The caller guarantees len(closes) >= period.
func trailingSMA(closes []decimal.Decimal, period int) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range closes[len(closes)-period:] {
		sum = sum.Add(c)
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}

// wilderRSI computes the relative strength index with Wilder smoothing:
// the first period deltas seed the average gain/loss, every later delta
// blends in at weight 1/period. The caller guarantees
// len(closes) > period.
func wilderRSI(closes []decimal.Decimal, period int) decimal.Decimal {
	p := decimal.NewFromInt(int64(period))
	avgGain, avgLoss := decimal.Zero, decimal.Zero

	for i := 1; i <= period; i++ {
		delta := closes[i].Sub(closes[i-1])
		if delta.IsPositive() {
			avgGain = avgGain.Add(delta)
		} else {
			avgLoss = avgLoss.Add(delta.Neg())
		}
	}
	avgGain = avgGain.Div(p)
	avgLoss = avgLoss.Div(p)

	smoothing := decimal.NewFromInt(int64(period - 1))
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i].Sub(closes[i-1])
		gain, loss := decimal.Zero, decimal.Zero
		if delta.IsPositive() {
			gain = delta
		} else {
			loss = delta.Neg()
		}
		avgGain = avgGain.Mul(smoothing).Add(gain).Div(p)
		avgLoss = avgLoss.Mul(smoothing).Add(loss).Div(p)
	}

	hundred := decimal.NewFromInt(100)
	if avgLoss.IsZero() {
		// No losses at all: max strength, unless the series never moved.
		if avgGain.IsZero() {
			return decimal.NewFromInt(50)
		}
		return hundred
	}
	rs := avgGain.Div(avgLoss)
	return hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs)))
}

// momentumPct returns the percentage change of the last close against
// the close period bars earlier. The caller guarantees
// len(closes) > period.
func momentumPct(closes []decimal.Decimal, period int) decimal.Decimal {
	last := closes[len(closes)-1]
	past := closes[len(closes)-1-period]
	if past.IsZero() {
		return decimal.Zero
	}
	return last.Sub(past).Div(past).Mul(decimal.NewFromInt(100))
}

// absInt returns |v| as a float64 for confidence arithmetic.
func absInt(v int) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}
