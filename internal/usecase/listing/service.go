// Package listing assembles apartment previews and details, ranking photos when a query is given.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vibesearch/internal/domain"
	domlisting "github.com/kailas-cloud/vibesearch/internal/domain/listing"
	"github.com/kailas-cloud/vibesearch/internal/logger"
)

const (
	// DefaultParallelism bounds concurrent photo rankings in a batch preview.
	DefaultParallelism = 4
	// MaxBatchIDs bounds a batch preview request.
	MaxBatchIDs = 100
)

// Service builds the read projections of listing records.
type Service struct {
	store       Store
	ranker      PhotoRanker
	parallelism int
}

// New creates a Service. ranker may be nil, which disables photo ranking.
func New(store Store, ranker PhotoRanker, parallelism int) *Service {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Service{store: store, ranker: ranker, parallelism: parallelism}
}

// Preview returns the reduced projection of one listing.
func (s *Service) Preview(ctx context.Context, id, query string) (domlisting.Preview, error) {
	l, err := s.get(ctx, id)
	if err != nil {
		return domlisting.Preview{}, err
	}
	return l.Preview(s.photos(ctx, l, query)), nil
}

// Details returns the full record. Photos are replaced only by a successful ranking.
func (s *Service) Details(ctx context.Context, id, query string) (domlisting.Listing, error) {
	l, err := s.get(ctx, id)
	if err != nil {
		return domlisting.Listing{}, err
	}
	if photos, ok := s.rank(ctx, l, query); ok {
		return l.WithPhotos(photos), nil
	}
	return l, nil
}

// Previews returns previews for ids in request order, ranking photos concurrently.
// Unknown ids are skipped; any other store error fails the batch.
func (s *Service) Previews(ctx context.Context, ids []string, query string) ([]domlisting.Preview, error) {
	ids = compactIDs(ids)
	if len(ids) > MaxBatchIDs {
		return nil, fmt.Errorf("%w: at most %d ids per request, got %d", domain.ErrInvalidQuery, MaxBatchIDs, len(ids))
	}

	out := make([]*domlisting.Preview, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, id := range ids {
		g.Go(func() error {
			p, err := s.Preview(gctx, id, query)
			if errors.Is(err, domain.ErrListingNotFound) {
				logger.FromContext(ctx).Debug("Batch preview skipped unknown id", zap.String("listing_id", id))
				return nil
			}
			if err != nil {
				return err
			}
			out[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch preview: %w", err)
	}

	previews := make([]domlisting.Preview, 0, len(out))
	for _, p := range out {
		if p != nil {
			previews = append(previews, *p)
		}
	}
	return previews, nil
}

func (s *Service) get(ctx context.Context, id string) (domlisting.Listing, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return domlisting.Listing{}, fmt.Errorf("get listing %q: %w", id, err)
	}
	return l, nil
}

func (s *Service) photos(ctx context.Context, l domlisting.Listing, query string) []domlisting.PhotoRef {
	if photos, ok := s.rank(ctx, l, query); ok {
		return photos
	}
	return l.Photos()
}

func (s *Service) rank(ctx context.Context, l domlisting.Listing, query string) ([]domlisting.PhotoRef, bool) {
	if strings.TrimSpace(query) == "" || s.ranker == nil {
		return nil, false
	}
	r := s.ranker.Rank(ctx, l.ID(), query, l.Photos())
	return r.Photos, r.Ranked
}

func compactIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
