package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider_UnknownSymbol(t *testing.T) {
	p := NewStaticProvider()
	ctx := context.Background()

	_, err := p.Candles(ctx, "GHOST", 10)
	assert.ErrorIs(t, err, ErrSymbolNotFound)

	_, err = p.Fundamentals(ctx, "GHOST")
	assert.ErrorIs(t, err, ErrSymbolNotFound)

	_, err = p.Headlines(ctx, "GHOST", 10)
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestStaticProvider_CandlesLimitKeepsMostRecent(t *testing.T) {
	p := NewStaticProvider()
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		p.AddCandles("AAPL", Candle{
			Time:  base.AddDate(0, 0, i),
			Close: decimal.NewFromInt(int64(100 + i)),
		})
	}

	bars, err := p.Candles(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "103", bars[0].Close.String(), "limit should keep the newest bars")
	assert.Equal(t, "104", bars[1].Close.String())

	all, err := p.Candles(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5, "non-positive limit should return everything")
}

func TestStaticProvider_HeadlinesLimit(t *testing.T) {
	p := NewStaticProvider()
	p.AddHeadlines("AAPL",
		Headline{Title: "first"},
		Headline{Title: "second"},
		Headline{Title: "third"},
	)

	items, err := p.Headlines(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Title, "headlines should stay newest first")
}

func TestStaticProvider_ReturnsCopies(t *testing.T) {
	p := NewStaticProvider()
	p.AddCandles("AAPL", Candle{Close: decimal.NewFromInt(100)})

	bars, err := p.Candles(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	bars[0].Close = decimal.NewFromInt(999)

	again, err := p.Candles(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Equal(t, "100", again[0].Close.String(), "callers must not be able to mutate the fixtures")
}

func TestStaticProvider_HonorsContextCancellation(t *testing.T) {
	p := NewStaticProvider()
	p.AddCandles("AAPL", Candle{Close: decimal.NewFromInt(100)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Candles(ctx, "AAPL", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDemoProvider_Deterministic(t *testing.T) {
	a := NewDemoProvider("AAPL")
	b := NewDemoProvider("AAPL")

	ctx := context.Background()

	barsA, err := a.Candles(ctx, "AAPL", 0)
	require.NoError(t, err)
	barsB, err := b.Candles(ctx, "AAPL", 0)
	require.NoError(t, err)

	require.Len(t, barsA, 120)
	assert.Equal(t, barsA, barsB, "demo data must reproduce exactly across constructions")

	fundA, err := a.Fundamentals(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, fundA.HasEarnings())

	news, err := a.Headlines(ctx, "AAPL", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, news)
}
