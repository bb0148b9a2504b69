package domain

import "errors"

var (
	// ErrListingNotFound signals an unknown listing id.
	ErrListingNotFound = errors.New("apartment not found")
	// ErrInvalidQuery signals a search request that cannot reach the pipeline.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingFailed marks a failed embedding call, including timeouts.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVisionFailed marks a failed or unusable image description.
	ErrVisionFailed = errors.New("vision description failed")
	// ErrQueryUnresolvable signals that no strategy produced a query vector.
	ErrQueryUnresolvable = errors.New("query could not be resolved")
	// ErrRateLimited signals a provider-side rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)
