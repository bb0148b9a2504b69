package ranker

import (
	"context"

	"github.com/kailas-cloud/vibesearch/internal/domain/search/result"
)

// Embedder turns the ranking query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PhotoIndex queries the per-image index scoped to one listing.
type PhotoIndex interface {
	SearchPhotos(ctx context.Context, vector []float32, listingID string, k int) ([]result.PhotoMatch, error)
}
