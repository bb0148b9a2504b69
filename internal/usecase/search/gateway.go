package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/result"
	"github.com/kailas-cloud/vibesearch/internal/logger"
	"github.com/kailas-cloud/vibesearch/internal/metrics"
)

// Gateway runs one KNN query against the listing index and never fails:
// a backend error or timeout is logged and reported as no hits.
type Gateway struct {
	repo    Repository
	timeout time.Duration
}

// NewGateway creates a Gateway. timeout <= 0 disables the per-call deadline.
func NewGateway(repo Repository, timeout time.Duration) *Gateway {
	return &Gateway{repo: repo, timeout: timeout}
}

// Search returns up to limit hits ordered by descending score, ties in index order.
func (g *Gateway) Search(ctx context.Context, vector []float32, filters filter.Expression, limit int) []result.Result {
	if limit <= 0 || len(vector) == 0 {
		return []result.Result{}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	hits, err := g.repo.SearchListings(ctx, vector, filters, limit)
	metrics.GatewaySearchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GatewaySearchesTotal.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Error("Listing index search failed",
			zap.Int("limit", limit),
			zap.Int("filters", filters.Len()),
			zap.Error(err),
		)
		return []result.Result{}
	}
	if len(hits) == 0 {
		metrics.GatewaySearchesTotal.WithLabelValues("empty").Inc()
		return []result.Result{}
	}

	metrics.GatewaySearchesTotal.WithLabelValues("hits").Inc()
	result.SortByScore(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
