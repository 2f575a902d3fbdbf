// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-quorum/internal/domain"
)

// Analyst is the analysis capability the engine fans out to.
// One Analyst performs one kind of analysis against a request and returns
// a single AnalysisResult.
//
// Analyze may block; implementations carry no obligation to react to
// cancellation promptly, which is why the dispatcher treats cancellation
// as best-effort and discards results that arrive after the batch froze.
// Analyze must be safe to invoke concurrently with other analysts'
// invocations.
type Analyst interface {
	// Name returns the analyst's unique identifier.
	// The name is used for logging, weighting and provenance tagging.
	Name() string

	// Analyze performs the analysis for one request and returns the
	// analyst's result. Errors are absorbed at the dispatch boundary:
	// they cost the analyst its contribution to the run, nothing more.
	// Implementations should return errors rather than panicking; the
	// dispatcher contains panics all the same.
	Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)

	// Validate checks that the analyst is properly configured and ready
	// for execution. Return nil if validation passes, or an error
	// describing what is invalid.
	Validate() error
}
