package marketdata

import (
	"context"
	"errors"
)

// ErrSymbolNotFound indicates the provider has no data for the requested
// symbol. Analysts surface it as an analysis failure for their own run
// contribution; it never fails anyone else's.
var ErrSymbolNotFound = errors.New("symbol not found")

// Provider is the data access contract the built-in analysts consume.
// Implementations must be safe for concurrent use: a dispatch batch may
// hit the same provider from several analysts at once.
type Provider interface {
	// Candles returns up to limit daily bars for symbol, oldest first.
	// Fewer bars than limit is not an error; analysts decide whether the
	// history is deep enough for their indicators.
	Candles(ctx context.Context, symbol string, limit int) ([]Candle, error)

	// Fundamentals returns the latest ratio snapshot for symbol.
	Fundamentals(ctx context.Context, symbol string) (Fundamentals, error)

	// Headlines returns up to limit recent news items for symbol, newest
	// first.
	Headlines(ctx context.Context, symbol string, limit int) ([]Headline, error)
}
