package application

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ahrav/go-quorum/internal/ports"
)

// DefaultAnalystRegistry is a thread-safe factory registry that creates
// analysts based on their type. Infrastructure packages register their
// factories at wiring time; the config loader then resolves analyst
// types from configuration files without the application layer importing
// any concrete analyst.
type DefaultAnalystRegistry struct {
	factories map[string]ports.AnalystFactory
	mu        sync.RWMutex
}

// Compile-time check that DefaultAnalystRegistry implements the
// ports.AnalystRegistry interface.
var _ ports.AnalystRegistry = (*DefaultAnalystRegistry)(nil)

// NewDefaultAnalystRegistry creates an empty registry ready for factory
// registration.
func NewDefaultAnalystRegistry() *DefaultAnalystRegistry {
	return &DefaultAnalystRegistry{factories: make(map[string]ports.AnalystFactory)}
}

// CreateAnalyst creates an analyst of the specified type with the given
// ID and parameters. The parameters map may be nil; factories receive an
// empty map instead.
// CreateAnalyst returns an error for empty IDs, unknown analyst types,
// or factory failures.
func (r *DefaultAnalystRegistry) CreateAnalyst(analystType, id string, params map[string]any) (ports.Analyst, error) {
	if id == "" {
		return nil, fmt.Errorf("analyst ID cannot be empty")
	}
	if params == nil {
		params = make(map[string]any)
	}

	r.mu.RLock()
	factory, exists := r.factories[analystType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported analyst type: %s", analystType)
	}

	analyst, err := factory(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyst of type %s: %w", analystType, err)
	}
	return analyst, nil
}

// RegisterAnalystFactory registers a factory function for the given
// analyst type. Registering a type twice is an error; replacing a
// factory silently would make config behavior depend on wiring order.
func (r *DefaultAnalystRegistry) RegisterAnalystFactory(analystType string, factory ports.AnalystFactory) error {
	if analystType == "" {
		return fmt.Errorf("analyst type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[analystType]; exists {
		return fmt.Errorf("factory already registered for analyst type: %s", analystType)
	}
	r.factories[analystType] = factory
	return nil
}

// SupportedTypes returns the registered analyst types in lexicographic
// order.
func (r *DefaultAnalystRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for analystType := range r.factories {
		types = append(types, analystType)
	}
	slices.Sort(types)
	return types
}
