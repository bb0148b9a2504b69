package listing

import (
	"context"

	domlisting "github.com/kailas-cloud/vibesearch/internal/domain/listing"
	"github.com/kailas-cloud/vibesearch/internal/usecase/ranker"
)

// Store looks listings up by exact id. Unknown ids wrap domain.ErrListingNotFound.
type Store interface {
	Get(ctx context.Context, id string) (domlisting.Listing, error)
}

// PhotoRanker orders a listing's photos against a query.
type PhotoRanker interface {
	Rank(ctx context.Context, listingID, query string, photos []domlisting.PhotoRef) ranker.Ranking
}
