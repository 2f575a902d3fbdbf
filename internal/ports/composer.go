package ports

import "github.com/ahrav/go-quorum/internal/domain"

// ReportComposer renders a consolidated decision and the per-analyst
// results behind it into a human-readable summary.
// Composition is pure formatting: implementations must be deterministic
// and must not mutate their inputs.
type ReportComposer interface {
	// Compose renders the report for one finished run. The result set is
	// frozen by the time Compose runs; implementations read it, never
	// write to it.
	Compose(res domain.ConsolidatedResult, set *domain.PartialResultSet) (string, error)
}
