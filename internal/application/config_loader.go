package application

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-quorum/internal/ports"
)

// ConfigLoader parses and validates engine configuration and turns it
// into a wired Engine. Analyst creation is delegated to an
// AnalystRegistry so the loader never depends on concrete analyst
// implementations.
type ConfigLoader struct {
	validator *validator.Validate
	registry  ports.AnalystRegistry
}

// NewConfigLoader creates a loader backed by the given registry.
// NewConfigLoader registers custom validators for semantic validation
// beyond basic struct field validation and returns an error if any
// registration fails.
func NewConfigLoader(registry ports.AnalystRegistry) (*ConfigLoader, error) {
	if registry == nil {
		return nil, fmt.Errorf("analyst registry cannot be nil")
	}

	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &ConfigLoader{validator: v, registry: registry}, nil
}

// LoadFromFile loads and validates a configuration from a YAML file.
// LoadFromFile returns an error if reading, parsing or validation fails.
func (cl *ConfigLoader) LoadFromFile(path string) (*Config, error) {
	// Clean the path to prevent directory traversal attacks.
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return cl.load(data)
}

// LoadFromReader loads and validates a configuration from an io.Reader,
// supporting any source that implements the Reader interface.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return cl.load(data)
}

func (cl *ConfigLoader) load(data []byte) (*Config, error) {
	config, err := cl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cl.validateConfig(config); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return config, nil
}

// parseYAML unmarshals YAML byte data into a Config using strict
// decoding, so unknown fields fail loudly instead of being silently
// ignored as typos.
func (cl *ConfigLoader) parseYAML(data []byte) (*Config, error) {
	var config Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// validateConfig performs struct field validation followed by semantic
// validation of relationships between configuration elements.
func (cl *ConfigLoader) validateConfig(config *Config) error {
	if err := cl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	if err := cl.validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}

	return nil
}

// validateSemantics enforces rules that cannot be expressed through
// struct tags: analyst IDs must be unique and each parameters block must
// satisfy its analyst type's schema.
func (cl *ConfigLoader) validateSemantics(config *Config) error {
	seen := make(map[string]struct{}, len(config.Analysts))

	for _, analyst := range config.Analysts {
		if _, exists := seen[analyst.ID]; exists {
			return fmt.Errorf("duplicate analyst ID %q", analyst.ID)
		}
		seen[analyst.ID] = struct{}{}

		if err := ValidateAnalystParameters(analyst.Type, analyst.Parameters); err != nil {
			return fmt.Errorf("analyst %s parameter validation failed: %w", analyst.ID, err)
		}
	}

	return nil
}

// BuildEngine constructs a fully wired engine from a validated
// configuration: analysts are created through the registry, registered
// on the roster in file order, and weighted per the config.
// BuildEngine returns an error if any analyst cannot be created or
// registered.
func (cl *ConfigLoader) BuildEngine(config *Config, composer ports.ReportComposer, opts ...EngineOption) (*Engine, error) {
	engine, err := NewEngine(config.Engine, composer, opts...)
	if err != nil {
		return nil, err
	}

	for _, analystConfig := range config.Analysts {
		analyst, err := cl.createAnalyst(analystConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create analyst %s: %w", analystConfig.ID, err)
		}

		if err := engine.RegisterAnalyst(analystConfig.ID, analyst); err != nil {
			return nil, fmt.Errorf("failed to register analyst %s: %w", analystConfig.ID, err)
		}
		if analystConfig.Weight != nil {
			if err := engine.SetWeight(analystConfig.ID, *analystConfig.Weight); err != nil {
				return nil, fmt.Errorf("failed to weight analyst %s: %w", analystConfig.ID, err)
			}
		}
	}

	return engine, nil
}

// createAnalyst instantiates one analyst from its configuration,
// decoding the deferred YAML parameters into the generic map the
// registry factories accept.
func (cl *ConfigLoader) createAnalyst(config AnalystConfig) (ports.Analyst, error) {
	var params map[string]any
	if config.Parameters.Kind != 0 {
		if err := config.Parameters.Decode(&params); err != nil {
			return nil, fmt.Errorf("failed to decode parameters: %w", err)
		}
	}

	analyst, err := cl.registry.CreateAnalyst(config.Type, config.ID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyst: %w", err)
	}

	return analyst, nil
}
