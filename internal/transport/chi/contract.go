package chi

import (
	"context"

	domlisting "github.com/kailas-cloud/vibesearch/internal/domain/listing"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/request"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/vibesearch/internal/usecase/health"
)

// Searcher runs validated search requests.
type Searcher interface {
	Search(ctx context.Context, req request.Request) []result.Result
}

// Listings serves listing projections.
type Listings interface {
	Preview(ctx context.Context, id, query string) (domlisting.Preview, error)
	Details(ctx context.Context, id, query string) (domlisting.Listing, error)
	Previews(ctx context.Context, ids []string, query string) ([]domlisting.Preview, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
