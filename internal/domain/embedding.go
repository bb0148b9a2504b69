package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
// Vectors are shared between cache tiers and callers and must be treated as read-only.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// CheckDimensions reports ErrVectorDimMismatch when the vector length differs from dims.
// dims <= 0 disables the check.
func (r EmbeddingResult) CheckDimensions(dims int) error {
	if dims <= 0 {
		return nil
	}
	if len(r.Embedding) != dims {
		return fmt.Errorf("got %d values, want %d: %w", len(r.Embedding), dims, ErrVectorDimMismatch)
	}
	return nil
}
