package resolver

import "context"

// Embedder turns text into a query vector. Failures wrap domain.ErrEmbeddingFailed.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Describer turns images into a short description. userText is optional context.
type Describer interface {
	Describe(ctx context.Context, imageURLs []string, userText string) (string, error)
}
