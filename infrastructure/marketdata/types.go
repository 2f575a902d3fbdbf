// Package marketdata provides market data access for the built-in
// analysts: candles, fundamentals, and news headlines, fetched from a
// REST provider or served from in-memory fixtures. The consensus engine
// itself never touches this package; analysts consume it through the
// Provider interface.
package marketdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar. Prices use decimal arithmetic so indicator
// math does not accumulate binary floating-point error.
type Candle struct {
	// Time is the bar's opening timestamp.
	Time time.Time `json:"time"`

	// Open is the first traded price of the bar.
	Open decimal.Decimal `json:"open"`

	// High is the highest traded price of the bar.
	High decimal.Decimal `json:"high"`

	// Low is the lowest traded price of the bar.
	Low decimal.Decimal `json:"low"`

	// Close is the last traded price of the bar.
	Close decimal.Decimal `json:"close"`

	// Volume is the number of units traded during the bar.
	Volume int64 `json:"volume"`
}

// Fundamentals is a snapshot of a company's key ratios. A zero decimal
// means the provider had no figure; callers that must distinguish
// "zero" from "absent" use the Has* helpers.
type Fundamentals struct {
	// PERatio is the price-to-earnings ratio. Negative when the company
	// is loss-making.
	PERatio decimal.Decimal `json:"pe_ratio"`

	// EPS is the trailing earnings per share.
	EPS decimal.Decimal `json:"eps"`

	// DebtToEquity is total debt divided by shareholder equity.
	DebtToEquity decimal.Decimal `json:"debt_to_equity"`

	// RevenueGrowth is the year-over-year revenue growth as a fraction,
	// e.g. 0.12 for 12%.
	RevenueGrowth decimal.Decimal `json:"revenue_growth"`

	// ProfitMargin is net income over revenue as a fraction.
	ProfitMargin decimal.Decimal `json:"profit_margin"`

	// DividendYield is the annual dividend over price as a fraction.
	DividendYield decimal.Decimal `json:"dividend_yield"`
}

// HasEarnings reports whether the snapshot carries a usable EPS figure.
func (f Fundamentals) HasEarnings() bool { return !f.EPS.IsZero() }

// HasLeverage reports whether the snapshot carries a debt-to-equity
// figure.
func (f Fundamentals) HasLeverage() bool { return !f.DebtToEquity.IsZero() }

// Headline is one news item about a symbol.
type Headline struct {
	// Time is the publication timestamp.
	Time time.Time `json:"time"`

	// Title is the headline text.
	Title string `json:"title"`

	// Source names the publisher.
	Source string `json:"source"`
}
