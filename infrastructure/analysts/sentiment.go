package analysts

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/go-quorum/infrastructure/marketdata"
	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Compile-time check that SentimentAnalyst implements ports.Analyst.
var _ ports.Analyst = (*SentimentAnalyst)(nil)

// Defaults for the sentiment analyst: how many headlines to request, the
// edit distance tolerated during lexicon matching, and how many headlines
// to score concurrently.
const (
	DefaultMaxHeadlines     = 40
	DefaultFuzzyDistance    = 1
	DefaultScoreConcurrency = 4
)

// minHeadlines is the coverage floor below which the analyst refuses to
// take a directional view and holds with low confidence instead.
const minHeadlines = 3

// fuzzyMinRunes gates fuzzy matching to tokens long enough that a
// one-edit tolerance cannot turn one short word into another.
const fuzzyMinRunes = 4

// netRatioBand is the net sentiment magnitude below which the headlines
// are considered mixed and the analyst holds.
const netRatioBand = 0.2

// foldCaser is a package-level Unicode case folder for performance.
// This avoids creating a new caser for each headline.
var foldCaser = cases.Fold()

// Sentiment lexicons, matched after NFKC normalization and case folding.
// Token order decides nothing: any positive hit scores +1 and any
// negative hit -1, then the headline takes the sign of its token sum.
var (
	positiveLexicon = []string{
		"beat", "beats", "surge", "surges", "soar", "soars",
		"rally", "rallies", "gain", "gains", "growth", "record",
		"upgrade", "upgraded", "strong", "bullish", "outperform",
		"profit", "profits", "jump", "jumps", "rise", "rises",
		"boost", "boosts", "win", "wins", "expand", "expands",
	}
	negativeLexicon = []string{
		"miss", "misses", "plunge", "plunges", "drop", "drops",
		"fall", "falls", "slump", "slumps", "downgrade", "downgraded",
		"weak", "bearish", "underperform", "loss", "losses",
		"lawsuit", "probe", "recall", "layoff", "layoffs",
		"cut", "cuts", "decline", "declines", "warn", "warns", "fraud",
	}

	positiveSet = lexiconSet(positiveLexicon)
	negativeSet = lexiconSet(negativeLexicon)
)

func lexiconSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// SentimentConfig defines coverage and matching parameters for the
// SentimentAnalyst.
type SentimentConfig struct {
	// MaxHeadlines is how many headlines to request from the provider.
	MaxHeadlines int `yaml:"max_headlines" json:"max_headlines" validate:"required,min=1"`

	// FuzzyDistance is the maximum Levenshtein distance tolerated when a
	// token misses the lexicons exactly. Zero disables fuzzy matching.
	FuzzyDistance int `yaml:"fuzzy_distance" json:"fuzzy_distance" validate:"min=0,max=5"`

	// Concurrency bounds how many headlines are scored at once.
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"required,min=1"`
}

// DefaultSentimentConfig returns a SentimentConfig with 40 headlines,
// single-edit fuzzy matching and four scoring goroutines.
func DefaultSentimentConfig() SentimentConfig {
	return SentimentConfig{
		MaxHeadlines:  DefaultMaxHeadlines,
		FuzzyDistance: DefaultFuzzyDistance,
		Concurrency:   DefaultScoreConcurrency,
	}
}

// SentimentAnalyst derives a recommendation from headline tone: each
// headline is normalized, tokenized and matched against positive and
// negative lexicons, the net positive-minus-negative ratio picks the
// action, and coverage plus ratio magnitude scale the confidence. It
// never offers a target price, exercising the aggregation path where a
// contributor abstains from price formation.
//
// The analyst is stateless and safe for concurrent use.
type SentimentAnalyst struct {
	name     string
	config   SentimentConfig
	provider marketdata.Provider
}

// NewSentimentAnalyst creates a SentimentAnalyst with the specified
// configuration. Returns an error if the name is empty, the provider is
// nil, or configuration validation fails.
func NewSentimentAnalyst(name string, config SentimentConfig, provider marketdata.Provider) (*SentimentAnalyst, error) {
	if name == "" {
		return nil, ErrEmptyAnalystName
	}
	if provider == nil {
		return nil, ErrNilProvider
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &SentimentAnalyst{name: name, config: config, provider: provider}, nil
}

// NewSentimentFromConfig creates a SentimentAnalyst from a parameters
// map, applying defaults for absent keys. This is the factory adapter
// used by the analyst registry.
func NewSentimentFromConfig(id string, params map[string]any, provider marketdata.Provider) (*SentimentAnalyst, error) {
	cfg := DefaultSentimentConfig()
	cfg.MaxHeadlines = intParam(params, "max_headlines", cfg.MaxHeadlines)
	cfg.FuzzyDistance = intParam(params, "fuzzy_distance", cfg.FuzzyDistance)
	cfg.Concurrency = intParam(params, "concurrency", cfg.Concurrency)
	return NewSentimentAnalyst(id, cfg, provider)
}

// Name returns the analyst's unique identifier.
func (sa *SentimentAnalyst) Name() string { return sa.name }

// Validate checks that the analyst is properly configured.
func (sa *SentimentAnalyst) Validate() error {
	if sa.provider == nil {
		return ErrNilProvider
	}
	if err := validate.Struct(sa.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Analyze fetches headlines for the request's symbol and scores their
// tone. Headlines are scored concurrently; each goroutine writes only
// its own index, so no lock is needed.
func (sa *SentimentAnalyst) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	headlines, err := sa.provider.Headlines(ctx, req.Symbol, sa.config.MaxHeadlines)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyst %s: failed to fetch headlines for %s: %w", sa.name, req.Symbol, err)
	}

	if len(headlines) < minHeadlines {
		return domain.AnalysisResult{
			Recommendation: domain.RecommendationHold,
			Confidence:     0.2,
			Risk:           domain.RiskMedium,
			Conclusion:     fmt.Sprintf("insufficient headline coverage for %s", req.Symbol),
			Warnings: []string{fmt.Sprintf("only %d headlines available, below the minimum of %d",
				len(headlines), minHeadlines)},
			RawData: map[string]any{"headlines": len(headlines)},
		}, nil
	}

	scores := make([]int, len(headlines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sa.config.Concurrency)

	for i, h := range headlines {
		i, h := i, h
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = sa.scoreHeadline(h.Title)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analyst %s: headline scoring aborted: %w", sa.name, err)
	}

	var positive, negative int
	for _, s := range scores {
		switch {
		case s > 0:
			positive++
		case s < 0:
			negative++
		}
	}
	total := len(headlines)
	neutral := total - positive - negative
	netRatio := float64(positive-negative) / float64(total)

	rec := domain.RecommendationHold
	switch {
	case netRatio >= netRatioBand:
		rec = domain.RecommendationBuy
	case netRatio <= -netRatioBand:
		rec = domain.RecommendationSell
	}

	coverage := clamp(float64(total)/float64(sa.config.MaxHeadlines), 0, 1)
	confidence := clamp(0.35+0.4*abs(netRatio)+0.2*coverage, 0, 0.95)

	keyPoints := []string{
		fmt.Sprintf("%d positive, %d negative, %d neutral of %d headlines", positive, negative, neutral, total),
		fmt.Sprintf("net sentiment ratio %+.2f", netRatio),
	}

	var warnings []string
	risk := domain.RiskLow
	if positive > 0 && negative > 0 {
		minority, majority := positive, negative
		if minority > majority {
			minority, majority = majority, minority
		}
		disagreement := float64(minority) / float64(majority)
		switch {
		case disagreement >= 0.8:
			risk = domain.RiskHigh
			warnings = append(warnings, "headlines sharply divided between positive and negative tone")
		case disagreement >= 0.5:
			risk = domain.RiskMedium
			warnings = append(warnings, "notable disagreement between positive and negative headlines")
		}
	} else if positive == 0 && negative == 0 {
		risk = domain.RiskMedium
		warnings = append(warnings, "no headline matched the sentiment lexicons")
	}

	return domain.AnalysisResult{
		Recommendation: rec,
		Confidence:     confidence,
		Risk:           risk,
		Conclusion: fmt.Sprintf("headline tone on %s is net %s (%d positive / %d negative of %d)",
			req.Symbol, toneLabel(netRatio), positive, negative, total),
		KeyPoints: keyPoints,
		Warnings:  warnings,
		RawData: map[string]any{
			"headlines": total,
			"positive":  positive,
			"negative":  negative,
			"neutral":   neutral,
			"net_ratio": netRatio,
		},
	}, nil
}

// scoreHeadline reduces one headline to -1, 0 or +1: the sign of its
// positive-minus-negative token hits.
func (sa *SentimentAnalyst) scoreHeadline(title string) int {
	var sum int
	for _, token := range tokenize(title) {
		sum += sa.matchToken(token)
	}
	switch {
	case sum > 0:
		return 1
	case sum < 0:
		return -1
	}
	return 0
}

// matchToken classifies one normalized token: +1 for a positive lexicon
// hit, -1 for a negative one, 0 otherwise. Exact matches win; fuzzy
// matching applies only to tokens of at least fuzzyMinRunes runes, and
// the positive lexicon is scanned first so classification never depends
// on map iteration order.
func (sa *SentimentAnalyst) matchToken(token string) int {
	if _, ok := positiveSet[token]; ok {
		return 1
	}
	if _, ok := negativeSet[token]; ok {
		return -1
	}
	if sa.config.FuzzyDistance == 0 || utf8.RuneCountInString(token) < fuzzyMinRunes {
		return 0
	}
	for _, w := range positiveLexicon {
		if levenshtein.ComputeDistance(token, w) <= sa.config.FuzzyDistance {
			return 1
		}
	}
	for _, w := range negativeLexicon {
		if levenshtein.ComputeDistance(token, w) <= sa.config.FuzzyDistance {
			return -1
		}
	}
	return 0
}

// tokenize splits a headline into normalized word tokens: NFKC
// normalization, Unicode case folding, then splitting on anything that
// is not a letter or digit.
func tokenize(s string) []string {
	normalized := foldCaser.String(norm.NFKC.String(s))
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// toneLabel names the direction of a net sentiment ratio.
func toneLabel(ratio float64) string {
	switch {
	case ratio >= netRatioBand:
		return "positive"
	case ratio <= -netRatioBand:
		return "negative"
	}
	return "mixed"
}
