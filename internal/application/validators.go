package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ValidateAnalystParameters validates the parameters block for a specific
// analyst type before the factory ever sees it, so configuration mistakes
// surface with the analyst's ID instead of a decode error deep inside a
// factory.
// ValidateAnalystParameters returns an error if parameter decoding fails
// or if any type-specific rule is violated.
func ValidateAnalystParameters(analystType string, params yaml.Node) error {
	var paramMap map[string]any
	if params.Kind != 0 {
		if err := params.Decode(&paramMap); err != nil {
			return fmt.Errorf("failed to decode parameters: %w", err)
		}
	}

	switch analystType {
	case "technical":
		return validateTechnicalParams(paramMap)
	case "fundamental":
		return validateFundamentalParams(paramMap)
	case "sentiment":
		return validateSentimentParams(paramMap)
	default:
		return fmt.Errorf("unknown analyst type: %s", analystType)
	}
}

// validateTechnicalParams validates parameters for technical analysts:
// fast_period, slow_period and rsi_period must be positive integers, and
// fast_period must stay below slow_period when both are given.
func validateTechnicalParams(params map[string]any) error {
	fast, err := optionalPositiveInt(params, "fast_period")
	if err != nil {
		return err
	}
	slow, err := optionalPositiveInt(params, "slow_period")
	if err != nil {
		return err
	}
	if _, err := optionalPositiveInt(params, "rsi_period"); err != nil {
		return err
	}

	if fast > 0 && slow > 0 && fast >= slow {
		return fmt.Errorf("fast_period (%d) must be less than slow_period (%d)", fast, slow)
	}
	return nil
}

// validateFundamentalParams validates parameters for fundamental
// analysts. The optional fair_pe must be a positive number.
func validateFundamentalParams(params map[string]any) error {
	if fairPE, ok := params["fair_pe"]; ok {
		switch v := fairPE.(type) {
		case float64:
			if v <= 0 {
				return fmt.Errorf("fair_pe must be positive")
			}
		case int:
			if v <= 0 {
				return fmt.Errorf("fair_pe must be positive")
			}
		default:
			return fmt.Errorf("fair_pe must be a number")
		}
	}
	return nil
}

// validateSentimentParams validates parameters for sentiment analysts.
// The optional fuzzy_distance must be an integer between 0 and 5, and
// concurrency a positive integer.
func validateSentimentParams(params map[string]any) error {
	if distance, ok := params["fuzzy_distance"]; ok {
		d, ok := distance.(int)
		if !ok {
			return fmt.Errorf("fuzzy_distance must be an integer")
		}
		if d < 0 || d > 5 {
			return fmt.Errorf("fuzzy_distance must be between 0 and 5")
		}
	}
	if _, err := optionalPositiveInt(params, "concurrency"); err != nil {
		return err
	}
	return nil
}

// optionalPositiveInt returns the integer value for key, or zero when the
// key is absent. Non-integer or non-positive values are errors.
func optionalPositiveInt(params map[string]any, key string) (int, error) {
	raw, ok := params[key]
	if !ok {
		return 0, nil
	}
	v, ok := raw.(int)
	if !ok {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	if v < 1 {
		return 0, fmt.Errorf("%s must be at least 1", key)
	}
	return v, nil
}

// registerCustomValidators registers domain-specific validation functions
// with the validator instance used for configuration structs.
// registerCustomValidators returns an error if any registration fails.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	if err := v.RegisterValidation("analystid", validateAnalystID); err != nil {
		return fmt.Errorf("failed to register analystid validator: %w", err)
	}
	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
// validateSemver is a validator.Func that can be registered with
// the validator instance for use in struct tags.
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3
}

// validateAnalystID validates roster identifiers: lowercase letters,
// digits, hyphens and underscores, starting with a letter or digit.
// validateAnalystID is a validator.Func for use in struct tags.
func validateAnalystID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" {
		return false
	}
	for i, ch := range id {
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
