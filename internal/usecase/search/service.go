// Package search resolves a query into a vector and retrieves matching listings.
package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/domain/search/request"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/result"
	"github.com/kailas-cloud/vibesearch/internal/logger"
)

// Service handles listing search across text, image and blended queries.
type Service struct {
	resolver Resolver
	gateway  *Gateway
}

// New creates a search service.
func New(resolver Resolver, gateway *Gateway) *Service {
	return &Service{resolver: resolver, gateway: gateway}
}

// Search runs a validated request. A query that cannot be resolved yields no results, not an error.
func (s *Service) Search(ctx context.Context, req request.Request) []result.Result {
	vec, err := s.resolver.Resolve(ctx, req.Text(), req.ImageRefs())
	if err != nil {
		logger.FromContext(ctx).Warn("Query unresolved, returning no results",
			zap.String("mode", string(req.Mode())),
			zap.Bool("vision", req.Mode().UsesVision()),
			zap.Error(err),
		)
		return []result.Result{}
	}
	return s.gateway.Search(ctx, vec, req.Expression(), req.Limit())
}
