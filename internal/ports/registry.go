package ports

// AnalystFactory creates an analyst instance from a configuration map.
// Factories are registered per analyst type and are responsible for
// decoding and validating their own parameters.
type AnalystFactory func(id string, params map[string]any) (Analyst, error)

// AnalystRegistry is the factory registry for pluggable analyst types.
// It turns (type, id, parameters) triples from configuration into live
// Analyst instances and supports extension with custom types at runtime.
type AnalystRegistry interface {
	// CreateAnalyst builds an analyst of the given registered type.
	// The params map is passed to the type's factory for decoding.
	CreateAnalyst(analystType, id string, params map[string]any) (Analyst, error)

	// RegisterAnalystFactory registers a factory function for a new
	// analyst type. Registering an already-known type is an error.
	RegisterAnalystFactory(analystType string, factory AnalystFactory) error

	// SupportedTypes returns all registered analyst types.
	SupportedTypes() []string
}
