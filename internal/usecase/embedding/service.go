// Package embedding provides the query embedding service and its decorators.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/vibesearch/internal/domain"
)

// Service is the single entry point for turning text into a query vector.
// Every failure, including a timeout or a wrong-sized vector, wraps domain.ErrEmbeddingFailed.
type Service struct {
	embedder   domain.Embedder
	timeout    time.Duration
	dimensions int
}

// NewService creates a Service. timeout <= 0 disables the per-call deadline;
// dimensions <= 0 disables the size check.
func NewService(embedder domain.Embedder, timeout time.Duration, dimensions int) *Service {
	return &Service{embedder: embedder, timeout: timeout, dimensions: dimensions}
}

// Embed returns the vector for text. Empty text is embedded like any other string.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}
	if err := res.CheckDimensions(s.dimensions); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res.Embedding, nil
}

// HealthCheck delegates when the underlying embedder supports it.
func (s *Service) HealthCheck(ctx context.Context) error {
	if hc, ok := s.embedder.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}
