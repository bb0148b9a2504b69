//go:build !cgo

package onnx

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/domain"
)

var errNoCgo = errors.New("onnx embedder requires cgo; build with CGO_ENABLED=1 and onnxruntime installed")

// Embedder is unavailable without cgo.
type Embedder struct{}

// NewEmbedder always fails without cgo.
func NewEmbedder(_ *Config, _ *zap.Logger) (*Embedder, error) {
	return nil, errNoCgo
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errNoCgo
}

// HealthCheck implements domain.HealthChecker.
func (e *Embedder) HealthCheck(_ context.Context) error { return errNoCgo }

// Close is a no-op.
func (e *Embedder) Close() {}
