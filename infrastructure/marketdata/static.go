package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// StaticProvider serves market data from in-memory fixtures. It backs
// tests, the runnable example, and the CLI's offline mode; no network is
// involved. All methods are safe for concurrent use.
type StaticProvider struct {
	mu           sync.RWMutex
	candles      map[string][]Candle
	fundamentals map[string]Fundamentals
	headlines    map[string][]Headline
}

// Compile-time check that StaticProvider implements Provider.
var _ Provider = (*StaticProvider)(nil)

// NewStaticProvider returns an empty fixture provider. Every lookup
// fails with ErrSymbolNotFound until data is added.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		candles:      make(map[string][]Candle),
		fundamentals: make(map[string]Fundamentals),
		headlines:    make(map[string][]Headline),
	}
}

// AddCandles appends bars for symbol, oldest first.
func (p *StaticProvider) AddCandles(symbol string, candles ...Candle) *StaticProvider {
	p.mu.Lock()
	p.candles[symbol] = append(p.candles[symbol], candles...)
	p.mu.Unlock()
	return p
}

// SetFundamentals replaces the ratio snapshot for symbol.
func (p *StaticProvider) SetFundamentals(symbol string, f Fundamentals) *StaticProvider {
	p.mu.Lock()
	p.fundamentals[symbol] = f
	p.mu.Unlock()
	return p
}

// AddHeadlines appends news items for symbol, newest first.
func (p *StaticProvider) AddHeadlines(symbol string, headlines ...Headline) *StaticProvider {
	p.mu.Lock()
	p.headlines[symbol] = append(p.headlines[symbol], headlines...)
	p.mu.Unlock()
	return p
}

// Candles returns the most recent limit bars for symbol, oldest first.
func (p *StaticProvider) Candles(ctx context.Context, symbol string, limit int) ([]Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	bars, ok := p.candles[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]Candle, len(bars))
	copy(out, bars)
	return out, nil
}

// Fundamentals returns the fixture snapshot for symbol.
func (p *StaticProvider) Fundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	if err := ctx.Err(); err != nil {
		return Fundamentals{}, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	f, ok := p.fundamentals[symbol]
	if !ok {
		return Fundamentals{}, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
	}
	return f, nil
}

// Headlines returns up to limit fixture news items for symbol, newest
// first.
func (p *StaticProvider) Headlines(ctx context.Context, symbol string, limit int) ([]Headline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	items, ok := p.headlines[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]Headline, len(items))
	copy(out, items)
	return out, nil
}

// NewDemoProvider returns a StaticProvider seeded with a deterministic
// synthetic data set for each symbol: 120 daily bars of a gently rising
// price series with a mid-series dip, a profitable-but-leveraged ratio
// snapshot, and a mixed bag of headlines. The series is computed, not
// random, so demo runs and examples reproduce exactly.
func NewDemoProvider(symbols ...string) *StaticProvider {
	p := NewStaticProvider()
	base := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)

	for _, symbol := range symbols {
		price := 100.0
		candles := make([]Candle, 0, 120)
		for i := 0; i < 120; i++ {
			// Drift up 0.3% a day with a pullback through the middle third.
			drift := 0.003
			if i >= 40 && i < 70 {
				drift = -0.004
			}
			open := price
			price *= 1 + drift
			high := max(open, price) * 1.004
			low := min(open, price) * 0.996

			candles = append(candles, Candle{
				Time:   base.AddDate(0, 0, i),
				Open:   decimal.NewFromFloat(open).Round(2),
				High:   decimal.NewFromFloat(high).Round(2),
				Low:    decimal.NewFromFloat(low).Round(2),
				Close:  decimal.NewFromFloat(price).Round(2),
				Volume: int64(1_000_000 + 5_000*i),
			})
		}
		p.AddCandles(symbol, candles...)

		p.SetFundamentals(symbol, Fundamentals{
			PERatio:       decimal.NewFromFloat(21.4),
			EPS:           decimal.NewFromFloat(5.1),
			DebtToEquity:  decimal.NewFromFloat(1.1),
			RevenueGrowth: decimal.NewFromFloat(0.09),
			ProfitMargin:  decimal.NewFromFloat(0.14),
			DividendYield: decimal.NewFromFloat(0.011),
		})

		newest := base.AddDate(0, 0, 120)
		p.AddHeadlines(symbol,
			Headline{Time: newest, Title: symbol + " beats quarterly revenue estimates on strong demand", Source: "Newswire"},
			Headline{Time: newest.Add(-6 * time.Hour), Title: "Analysts upgrade " + symbol + " citing margin growth", Source: "Market Desk"},
			Headline{Time: newest.Add(-26 * time.Hour), Title: symbol + " announces record order backlog", Source: "Finance Daily"},
			Headline{Time: newest.Add(-50 * time.Hour), Title: "Supplier warns of weak component demand from " + symbol, Source: "Trade Press"},
			Headline{Time: newest.Add(-73 * time.Hour), Title: symbol + " rally continues as profit outlook improves", Source: "Newswire"},
			Headline{Time: newest.Add(-98 * time.Hour), Title: "Regulator opens inquiry into " + symbol + " accounting, shares drop", Source: "Wire Service"},
		)
	}
	return p
}
