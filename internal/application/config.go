package application

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root engine configuration, typically loaded from a YAML
// file:
//
//	version: "1.0.0"
//	engine:
//	  max_concurrency: 5
//	  timeout_seconds: 30
//	  shutdown_grace_seconds: 5
//	analysts:
//	  - id: sma-cross
//	    type: technical
//	    weight: 0.8
//	    parameters:
//	      fast_period: 10
//	      slow_period: 30
//	  - id: value-screen
//	    type: fundamental
//	  - id: news-pulse
//	    type: sentiment
//	    weight: 0.5
//	    parameters:
//	      fuzzy_distance: 2
type Config struct {
	// Version is the configuration schema version in semantic
	// versioning format (X.Y.Z).
	Version string `yaml:"version" validate:"required,semver"`

	// Engine holds pool sizing and deadline settings. Zero values fall
	// back to the package defaults.
	Engine EngineConfig `yaml:"engine"`

	// Analysts lists the analysts to create and register, in file order.
	Analysts []AnalystConfig `yaml:"analysts" validate:"required,min=1,dive"`
}

// EngineConfig holds pool sizing and deadline settings for the engine.
// The zero value of every field selects the package default, so a config
// file may omit the whole section.
type EngineConfig struct {
	// MaxConcurrency caps how many analysts execute simultaneously
	// within one run. Defaults to DefaultMaxConcurrency.
	MaxConcurrency int `yaml:"max_concurrency" validate:"omitempty,min=1,max=64"`

	// TimeoutSeconds is the global deadline for one run's dispatch
	// batch. Analysts still running when it expires are cancelled and
	// their results discarded. Defaults to DefaultDispatchTimeout.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"omitempty,min=1,max=3600"`

	// ShutdownGraceSeconds bounds how long Shutdown waits for in-flight
	// runs to drain before cancelling them. Defaults to
	// DefaultShutdownGrace.
	ShutdownGraceSeconds int `yaml:"shutdown_grace_seconds" validate:"omitempty,min=0,max=300"`
}

// DefaultEngineConfig returns the engine defaults: five concurrent
// analysts, a thirty second batch deadline and five seconds of shutdown
// grace.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxConcurrency:       DefaultMaxConcurrency,
		TimeoutSeconds:       int(DefaultDispatchTimeout / time.Second),
		ShutdownGraceSeconds: int(DefaultShutdownGrace / time.Second),
	}
}

// AnalystConfig describes one analyst to create through the registry and
// place on the roster.
type AnalystConfig struct {
	// ID uniquely names the analyst on the roster and in reports.
	// Lowercase letters, digits, hyphens and underscores.
	ID string `yaml:"id" validate:"required,analystid,min=1,max=100"`

	// Type selects the registered factory that builds the analyst.
	Type string `yaml:"type" validate:"required,oneof=technical fundamental sentiment"`

	// Weight is the analyst's static weight in [0, 1]. Omitted means
	// the default weight of 1.0.
	Weight *float64 `yaml:"weight" validate:"omitempty,min=0,max=1"`

	// Parameters carries analyst-specific settings. The yaml.Node
	// defers decoding so each analyst type applies its own schema.
	Parameters yaml.Node `yaml:"parameters"`
}
