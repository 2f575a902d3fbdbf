// Package application contains the orchestration core of the consensus
// engine: the analyst roster, the bounded concurrent dispatcher, the
// weighted aggregator, and the engine that drives one run through the
// Idle -> Running -> {Finished, Error} lifecycle.
package application

import (
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// DefaultWeight is the influence assumed for analysts with no configured
// weight. The full-influence default keeps aggregation from being
// silently diluted when most of a roster is unweighted.
const DefaultWeight = 1.0

// RegisteredAnalyst pairs an analyst handle with the weight in effect for
// it. Snapshots hand these to the dispatcher and the aggregator so an
// in-flight run never observes later roster changes.
type RegisteredAnalyst struct {
	// ID is the analyst's registry key.
	ID string

	// Weight is the analyst's static influence factor in [0, 1].
	Weight float64

	// Analyst is the capability handle the dispatcher invokes.
	Analyst ports.Analyst
}

// Roster is the worker registry and weight table. It maps analyst
// identifiers to capability handles and to static weights in [0, 1];
// the two are independent, so a weight may be configured before its
// analyst registers. All methods are safe for concurrent use. Runs work
// off a Snapshot and never see concurrent mutation.
type Roster struct {
	mu       sync.RWMutex
	analysts map[string]ports.Analyst
	weights  map[string]float64
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{
		analysts: make(map[string]ports.Analyst),
		weights:  make(map[string]float64),
	}
}

// Register inserts or replaces the analyst under id. A nil handle or an
// empty identifier is rejected without any state change.
func (r *Roster) Register(id string, a ports.Analyst) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrEmptyAnalystID
	}
	if a == nil {
		return domain.ErrNilAnalyst
	}

	r.mu.Lock()
	r.analysts[id] = a
	r.mu.Unlock()
	return nil
}

// Deregister removes the analyst under id and reports whether one was
// registered. Any configured weight is kept for re-registration.
func (r *Roster) Deregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.analysts[id]
	delete(r.analysts, id)
	return ok
}

// SetWeight configures the weight for id. Values outside [0, 1] are
// rejected with ErrWeightOutOfRange and leave the table unchanged.
func (r *Roster) SetWeight(id string, w float64) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrEmptyAnalystID
	}
	if math.IsNaN(w) || w < 0 || w > 1 {
		return domain.ErrWeightOutOfRange
	}

	r.mu.Lock()
	r.weights[id] = w
	r.mu.Unlock()
	return nil
}

// Weight returns the configured weight for id, or DefaultWeight when
// none is set.
func (r *Roster) Weight(id string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if w, ok := r.weights[id]; ok {
		return w
	}
	return DefaultWeight
}

// Len returns the number of registered analysts.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.analysts)
}

// IDs returns the registered analyst identifiers in lexicographic order.
func (r *Roster) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.analysts))
	for id := range r.analysts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Snapshot returns a stable-ordered copy of the roster with effective
// weights resolved. Registration or weight changes after the snapshot
// never affect it; this is what isolates an in-flight run from
// concurrent mutation.
func (r *Roster) Snapshot() []RegisteredAnalyst {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RegisteredAnalyst, 0, len(r.analysts))
	for id, a := range r.analysts {
		w, ok := r.weights[id]
		if !ok {
			w = DefaultWeight
		}
		out = append(out, RegisteredAnalyst{ID: id, Weight: w, Analyst: a})
	}
	slices.SortFunc(out, func(a, b RegisteredAnalyst) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
