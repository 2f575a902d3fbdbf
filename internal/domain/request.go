// Package domain contains the pure, dependency-free domain models for the
// consensus engine: analysis requests, per-analyst results, the partial
// result set built during a dispatch, and the consolidated decision
// derived from it.
package domain

import "strings"

// AnalysisRequest describes one subject to analyze. A request is created
// per invocation, treated as immutable once dispatched, and discarded
// after the run; callers must not mutate Parameters while a run is in
// flight.
type AnalysisRequest struct {
	// Symbol is the opaque subject identifier, e.g. an instrument symbol.
	Symbol string `json:"symbol"`

	// Parameters carries free-form request parameters passed through to
	// every analyst untouched.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Validate checks that the request carries a usable subject identifier.
// Richer textual extraction and normalization belong to the caller; the
// engine only requires presence.
func (r AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return ErrNoSubject
	}
	return nil
}
