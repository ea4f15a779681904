package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// ErrNoData marks a run that had nothing to analyze (empty window,
	// no documents after filtering, empty vocabulary). It is distinct from
	// a run that analyzed data and found nothing.
	ErrNoData = errors.New("no data")

	// ErrPipelineAborted marks a run stopped mid-computation (cancellation,
	// resource limits). Partial results are never reported with it.
	ErrPipelineAborted = errors.New("pipeline aborted")

	ErrClosed = errors.New("resource closed")
)
