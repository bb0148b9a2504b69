package search

import (
	"context"

	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/result"
)

// Repository queries the listing vector index.
type Repository interface {
	SearchListings(ctx context.Context, vector []float32, filters filter.Expression, k int) ([]result.Result, error)
}

// Resolver turns the query into a vector.
type Resolver interface {
	Resolve(ctx context.Context, text string, imageRefs []string) ([]float32, error)
}
