package analysts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/infrastructure/marketdata"
	"github.com/ahrav/go-quorum/internal/domain"
)

// candleSeries builds daily candles whose closes follow closeAt(i).
func candleSeries(n int, closeAt func(i int) float64) []marketdata.Candle {
	base := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]marketdata.Candle, n)
	for i := 0; i < n; i++ {
		price := decimal.NewFromFloat(closeAt(i))
		candles[i] = marketdata.Candle{
			Time:   base.AddDate(0, 0, i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		}
	}
	return candles
}

func TestNewTechnicalAnalyst(t *testing.T) {
	provider := marketdata.NewStaticProvider()

	tests := []struct {
		name        string
		analystName string
		config      TechnicalConfig
		provider    marketdata.Provider
		wantError   bool
		errorMsg    string
	}{
		{
			name:        "default configuration",
			analystName: "tech-1",
			config:      DefaultTechnicalConfig(),
			provider:    provider,
		},
		{
			name:        "empty analyst name",
			analystName: "",
			config:      DefaultTechnicalConfig(),
			provider:    provider,
			wantError:   true,
			errorMsg:    "analyst name cannot be empty",
		},
		{
			name:        "nil provider",
			analystName: "tech-1",
			config:      DefaultTechnicalConfig(),
			provider:    nil,
			wantError:   true,
			errorMsg:    "provider cannot be nil",
		},
		{
			name:        "fast period not below slow period",
			analystName: "tech-1",
			config: TechnicalConfig{
				FastPeriod:     26,
				SlowPeriod:     12,
				RSIPeriod:      14,
				MomentumPeriod: 10,
				CandleLimit:    90,
			},
			provider:  provider,
			wantError: true,
			errorMsg:  "gtfield",
		},
		{
			name:        "missing rsi period",
			analystName: "tech-1",
			config: TechnicalConfig{
				FastPeriod:     12,
				SlowPeriod:     26,
				MomentumPeriod: 10,
				CandleLimit:    90,
			},
			provider:  provider,
			wantError: true,
			errorMsg:  "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyst, err := NewTechnicalAnalyst(tt.analystName, tt.config, tt.provider)
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, analyst)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.analystName, analyst.Name())
			assert.NoError(t, analyst.Validate())
		})
	}
}

func TestTechnicalAnalyst_Analyze_Uptrend(t *testing.T) {
	provider := marketdata.NewStaticProvider()
	provider.AddCandles("UPCO", candleSeries(60, func(i int) float64 { return 100 + float64(i) })...)

	analyst, err := NewTechnicalAnalyst("tech-1", DefaultTechnicalConfig(), provider)
	require.NoError(t, err)

	result, err := analyst.Analyze(context.Background(), domain.AnalysisRequest{Symbol: "UPCO"})
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	// Trend and momentum are bullish; RSI pinned at 100 votes bearish,
	// so the net score is one bullish signal.
	assert.Equal(t, domain.RecommendationBuy, result.Recommendation)
	assert.InDelta(t, 0.65, result.Confidence, 1e-9)
	assert.Equal(t, domain.RiskMedium, result.Risk, "pinned RSI is an extreme reading")

	require.NotNil(t, result.TargetPrice)
	lastClose := 100.0 + 59
	assert.Greater(t, *result.TargetPrice, lastClose, "positive momentum should project above the last close")

	assert.NotEmpty(t, result.Conclusion)
	assert.NotEmpty(t, result.KeyPoints)
	assert.Contains(t, result.RawData, "rsi")
	assert.Contains(t, result.RawData, "momentum_pct")
}

func TestTechnicalAnalyst_Analyze_Downtrend(t *testing.T) {
	provider := marketdata.NewStaticProvider()
	provider.AddCandles("DOWN", candleSeries(60, func(i int) float64 { return 200 - float64(i) })...)

	analyst, err := NewTechnicalAnalyst("tech-1", DefaultTechnicalConfig(), provider)
	require.NoError(t, err)

	result, err := analyst.Analyze(context.Background(), domain.AnalysisRequest{Symbol: "DOWN"})
	require.NoError(t, err)

	assert.Equal(t, domain.RecommendationSell, result.Recommendation)
	assert.InDelta(t, 0.65, result.Confidence, 1e-9)
}

func TestTechnicalAnalyst_Analyze_FlatMarket(t *testing.T) {
	provider := marketdata.NewStaticProvider()
	provider.AddCandles("FLAT", candleSeries(60, func(int) float64 { return 100 })...)

	analyst, err := NewTechnicalAnalyst("tech-1", DefaultTechnicalConfig(), provider)
	require.NoError(t, err)

	result, err := analyst.Analyze(context.Background(), domain.AnalysisRequest{Symbol: "FLAT"})
	require.NoError(t, err)

	assert.Equal(t, domain.RecommendationHold, result.Recommendation)
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	assert.Equal(t, domain.RiskLow, result.Risk)
	assert.Empty(t, result.Warnings)
}

func TestTechnicalAnalyst_Analyze_InsufficientHistory(t *testing.T) {
	provider := marketdata.NewStaticProvider()
	provider.AddCandles("THIN", candleSeries(5, func(i int) float64 { return 100 + float64(i) })...)

	analyst, err := NewTechnicalAnalyst("tech-1", DefaultTechnicalConfig(), provider)
	require.NoError(t, err)

	_, err = analyst.Analyze(context.Background(), domain.AnalysisRequest{Symbol: "THIN"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Contains(t, err.Error(), "tech-1")
}

func TestTechnicalAnalyst_Analyze_UnknownSymbol(t *testing.T) {
	analyst, err := NewTechnicalAnalyst("tech-1", DefaultTechnicalConfig(), marketdata.NewStaticProvider())
	require.NoError(t, err)

	_, err = analyst.Analyze(context.Background(), domain.AnalysisRequest{Symbol: "GHOST"})
	assert.ErrorIs(t, err, marketdata.ErrSymbolNotFound)
}

func TestNewTechnicalFromConfig(t *testing.T) {
	provider := marketdata.NewStaticProvider()

	analyst, err := NewTechnicalFromConfig("tech-1", map[string]any{
		"fast_period": 5,
		"slow_period": 20,
	}, provider)
	require.NoError(t, err)
	assert.Equal(t, 5, analyst.config.FastPeriod)
	assert.Equal(t, 20, analyst.config.SlowPeriod)
	assert.Equal(t, DefaultRSIPeriod, analyst.config.RSIPeriod, "absent keys keep defaults")

	_, err = NewTechnicalFromConfig("tech-1", map[string]any{
		"fast_period": 30,
		"slow_period": 10,
	}, provider)
	assert.Error(t, err, "inverted periods must fail construction")
}

func TestTrailingSMA(t *testing.T) {
	closes := []decimal.Decimal{
		decimal.NewFromInt(1),
		decimal.NewFromInt(2),
		decimal.NewFromInt(3),
		decimal.NewFromInt(4),
	}
	assert.Equal(t, "3.5", trailingSMA(closes, 2).String())
	assert.Equal(t, "2.5", trailingSMA(closes, 4).String())
}

func TestWilderRSI_Bounds(t *testing.T) {
	rising := make([]decimal.Decimal, 30)
	falling := make([]decimal.Decimal, 30)
	flat := make([]decimal.Decimal, 30)
	for i := range rising {
		rising[i] = decimal.NewFromInt(int64(100 + i))
		falling[i] = decimal.NewFromInt(int64(100 - i))
		flat[i] = decimal.NewFromInt(100)
	}

	assert.Equal(t, "100", wilderRSI(rising, 14).String(), "all gains pin RSI at 100")
	assert.Equal(t, "0", wilderRSI(falling, 14).String(), "all losses pin RSI at 0")
	assert.Equal(t, "50", wilderRSI(flat, 14).String(), "a motionless series is neutral")
}

func TestMomentumPct(t *testing.T) {
	closes := make([]decimal.Decimal, 11)
	for i := range closes {
		closes[i] = decimal.NewFromInt(int64(100 + i))
	}

	got := momentumPct(closes, 5)
	assert.InDelta(t, 100.0*5.0/105.0, got.InexactFloat64(), 1e-9)
}
