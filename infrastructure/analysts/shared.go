// Package analysts provides the built-in Analyst implementations that
// ship with the consensus engine: technical, fundamental and sentiment
// analysis over market data. All three are deterministic, validate their
// configuration with struct tags, and return errors instead of panicking
// so the dispatcher's failure isolation stays the only safety net.
package analysts

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-quorum/infrastructure/marketdata"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Common errors returned by analyst constructors.
var (
	// ErrEmptyAnalystName is returned when attempting to create an analyst
	// with an empty name.
	ErrEmptyAnalystName = errors.New("analyst name cannot be empty")

	// ErrNilProvider is returned when attempting to create an analyst
	// without a market data provider.
	ErrNilProvider = errors.New("market data provider cannot be nil")

	// ErrInsufficientData is returned when the provider has too little
	// history for the configured analysis windows.
	ErrInsufficientData = errors.New("insufficient market data")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// RegisterBuiltins registers factories for the three built-in analyst
// types with the given registry, all backed by the same provider. The
// config loader resolves `type: technical|fundamental|sentiment` entries
// through these factories.
func RegisterBuiltins(registry ports.AnalystRegistry, provider marketdata.Provider) error {
	builtins := map[string]ports.AnalystFactory{
		"technical": func(id string, params map[string]any) (ports.Analyst, error) {
			return NewTechnicalFromConfig(id, params, provider)
		},
		"fundamental": func(id string, params map[string]any) (ports.Analyst, error) {
			return NewFundamentalFromConfig(id, params, provider)
		},
		"sentiment": func(id string, params map[string]any) (ports.Analyst, error) {
			return NewSentimentFromConfig(id, params, provider)
		},
	}

	for analystType, factory := range builtins {
		if err := registry.RegisterAnalystFactory(analystType, factory); err != nil {
			return fmt.Errorf("failed to register %s factory: %w", analystType, err)
		}
	}
	return nil
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// intParam returns the integer parameter for key, or fallback when the
// key is absent or not an integer. Parameter validation happens before
// factories run, so silent fallback here never hides a typo.
func intParam(params map[string]any, key string, fallback int) int {
	if v, ok := params[key].(int); ok {
		return v
	}
	return fallback
}

// floatParam returns the numeric parameter for key, accepting both YAML
// integer and float forms, or fallback when absent.
func floatParam(params map[string]any, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}
