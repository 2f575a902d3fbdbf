package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Client defaults applied when ClientConfig leaves a field zero.
const (
	// DefaultRequestTimeout bounds a single HTTP round trip.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultRequestsPerSecond is the sustained request rate against the
	// upstream API.
	DefaultRequestsPerSecond = 5

	// DefaultBurst is how many requests may exceed the sustained rate
	// in a spike.
	DefaultBurst = 2
)

// ClientConfig configures the REST market data client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://data.example.com/v1".
	BaseURL string

	// APIKey authenticates every request via the token query parameter.
	// Empty is allowed for providers that need no key.
	APIKey string

	// Timeout bounds each HTTP round trip. Defaults to
	// DefaultRequestTimeout.
	Timeout time.Duration

	// RequestsPerSecond caps the sustained request rate. Defaults to
	// DefaultRequestsPerSecond.
	RequestsPerSecond float64

	// Burst is the token bucket depth for short spikes. Defaults to
	// DefaultBurst.
	Burst int
}

// DefaultClientConfig returns a ClientConfig with the package defaults
// filled in. BaseURL and APIKey stay empty; callers must supply them.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:           DefaultRequestTimeout,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
	}
}

// Client is a rate-limited REST Provider. Every call waits on a token
// bucket before hitting the upstream API, and identical concurrent
// fetches are collapsed into one request via singleflight, so a dispatch
// batch of analysts asking for the same symbol costs one round trip per
// endpoint instead of one per analyst.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	group   singleflight.Group
	apiKey  string
}

// Compile-time check that Client implements Provider.
var _ Provider = (*Client)(nil)

// NewClient creates a REST client from the configuration. The base URL
// is required; every other field falls back to the package defaults.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("marketdata client requires a base URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		apiKey:  cfg.APIKey,
	}, nil
}

// candlePayload is the wire form of one OHLCV bar.
type candlePayload struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// fundamentalsPayload is the wire form of a ratio snapshot.
type fundamentalsPayload struct {
	PERatio       float64 `json:"pe_ratio"`
	EPS           float64 `json:"eps"`
	DebtToEquity  float64 `json:"debt_to_equity"`
	RevenueGrowth float64 `json:"revenue_growth"`
	ProfitMargin  float64 `json:"profit_margin"`
	DividendYield float64 `json:"dividend_yield"`
}

// headlinePayload is the wire form of one news item.
type headlinePayload struct {
	Time   int64  `json:"time"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Candles fetches up to limit daily bars for symbol, oldest first.
func (c *Client) Candles(ctx context.Context, symbol string, limit int) ([]Candle, error) {
	key := fmt.Sprintf("candles:%s:%d", symbol, limit)
	body, err := c.fetch(ctx, key, "/candles", map[string]string{
		"symbol": symbol,
		"limit":  strconv.Itoa(limit),
	})
	if err != nil {
		return nil, err
	}

	var payload []candlePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding candles for %s: %w", symbol, err)
	}

	candles := make([]Candle, 0, len(payload))
	for _, p := range payload {
		candles = append(candles, Candle{
			Time:   time.Unix(p.Time, 0).UTC(),
			Open:   decimal.NewFromFloat(p.Open),
			High:   decimal.NewFromFloat(p.High),
			Low:    decimal.NewFromFloat(p.Low),
			Close:  decimal.NewFromFloat(p.Close),
			Volume: p.Volume,
		})
	}
	return candles, nil
}

// Fundamentals fetches the latest ratio snapshot for symbol.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	key := "fundamentals:" + symbol
	body, err := c.fetch(ctx, key, "/fundamentals", map[string]string{"symbol": symbol})
	if err != nil {
		return Fundamentals{}, err
	}

	var payload fundamentalsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Fundamentals{}, fmt.Errorf("decoding fundamentals for %s: %w", symbol, err)
	}

	return Fundamentals{
		PERatio:       decimal.NewFromFloat(payload.PERatio),
		EPS:           decimal.NewFromFloat(payload.EPS),
		DebtToEquity:  decimal.NewFromFloat(payload.DebtToEquity),
		RevenueGrowth: decimal.NewFromFloat(payload.RevenueGrowth),
		ProfitMargin:  decimal.NewFromFloat(payload.ProfitMargin),
		DividendYield: decimal.NewFromFloat(payload.DividendYield),
	}, nil
}

// Headlines fetches up to limit recent news items for symbol, newest
// first.
func (c *Client) Headlines(ctx context.Context, symbol string, limit int) ([]Headline, error) {
	key := fmt.Sprintf("headlines:%s:%d", symbol, limit)
	body, err := c.fetch(ctx, key, "/headlines", map[string]string{
		"symbol": symbol,
		"limit":  strconv.Itoa(limit),
	})
	if err != nil {
		return nil, err
	}

	var payload []headlinePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding headlines for %s: %w", symbol, err)
	}

	headlines := make([]Headline, 0, len(payload))
	for _, p := range payload {
		headlines = append(headlines, Headline{
			Time:   time.Unix(p.Time, 0).UTC(),
			Title:  p.Title,
			Source: p.Source,
		})
	}
	return headlines, nil
}

// fetch performs one rate-limited GET against path, collapsing identical
// concurrent calls through singleflight. The symbol query parameter is
// part of the key, so distinct symbols never share a flight. The rate
// token is consumed inside the flight: collapsed callers cost one
// request, not one each.
func (c *Client) fetch(ctx context.Context, key, path string, params map[string]string) ([]byte, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}

		req := c.http.R().SetContext(ctx).SetQueryParams(params)
		if c.apiKey != "" {
			req.SetQueryParam("token", c.apiKey)
		}

		resp, err := req.Get(path)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", path, err)
		}

		switch resp.StatusCode() {
		case 200:
			return resp.Body(), nil
		case 404:
			return nil, fmt.Errorf("%s: %w", params["symbol"], ErrSymbolNotFound)
		default:
			return nil, fmt.Errorf("api error %d on %s: %s", resp.StatusCode(), path, resp.String())
		}
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
