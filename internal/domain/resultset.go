package domain

import (
	"maps"
	"sync"
)

// PartialResultSet collects the valid analyst results for one run.
// It is created empty at dispatch start, written concurrently during the
// fan-out phase, and frozen exactly once when the batch completes or the
// deadline fires. Writes after Freeze are discarded, which keeps late
// completions from cancelled stragglers out of the run.
//
// Each analyst writes exactly one key it owns, so no two writers ever
// touch the same entry; the mutex guards the map structure and the
// freeze handshake, not write-write conflicts.
type PartialResultSet struct {
	mu      sync.Mutex
	results map[string]AnalysisResult
	order   []string
	frozen  bool
}

// NewPartialResultSet returns an empty set. order is the registry
// snapshot order for the run and fixes the iteration order reported by
// IDs for the lifetime of the set.
func NewPartialResultSet(order []string) *PartialResultSet {
	return &PartialResultSet{
		results: make(map[string]AnalysisResult, len(order)),
		order:   append([]string(nil), order...),
	}
}

// Put records one analyst's result under its own identifier. It reports
// whether the write was accepted; false means the set was already frozen
// and the result has been discarded.
func (s *PartialResultSet) Put(id string, res AnalysisResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return false
	}
	s.results[id] = res
	return true
}

// Freeze makes the set read-only. Calling Freeze more than once is safe.
func (s *PartialResultSet) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

// Frozen reports whether the set has been frozen.
func (s *PartialResultSet) Frozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

// Len returns the number of recorded results.
func (s *PartialResultSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Get returns the result recorded for id, if any.
func (s *PartialResultSet) Get(id string) (AnalysisResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[id]
	return res, ok
}

// IDs returns the contributing analyst identifiers in the run's snapshot
// order. The order is deterministic within a run and carries no meaning
// beyond it.
func (s *PartialResultSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.results))
	for _, id := range s.order {
		if _, ok := s.results[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Results returns a copy of the recorded results keyed by analyst ID.
func (s *PartialResultSet) Results() map[string]AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]AnalysisResult, len(s.results))
	maps.Copy(out, s.results)
	return out
}
