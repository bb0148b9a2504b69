// Package ranker orders a listing's photos by relevance to a search query.
package ranker

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/domain/listing"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/result"
	"github.com/kailas-cloud/vibesearch/internal/logger"
	"github.com/kailas-cloud/vibesearch/internal/metrics"
)

// unmatchedScore sinks photos the index has no vector for below any cosine score.
var unmatchedScore = math.Inf(-1)

// Outcome labels.
const (
	OutcomeRanked      = "ranked"
	OutcomeUnranked    = "unranked"
	OutcomePassthrough = "passthrough"
)

// Ranking is the ranker output. Ranked is false when the photos come back in their original order.
type Ranking struct {
	Photos []listing.PhotoRef
	Ranked bool
}

// Ranker re-orders photos using the image index. It never drops a usable photo.
type Ranker struct {
	embed   Embedder
	index   PhotoIndex
	timeout time.Duration
}

// New creates a Ranker. timeout bounds the image index call; <= 0 disables it.
func New(embed Embedder, index PhotoIndex, timeout time.Duration) *Ranker {
	return &Ranker{embed: embed, index: index, timeout: timeout}
}

// Rank orders photos by descending similarity to query.
//
// Without usable photos or without a query the input comes back untouched. If the query
// cannot be embedded or the index fails, the usable photos come back as URLs in their
// original order. Photos the index has no match for keep their relative order after
// all matched ones.
func (r *Ranker) Rank(ctx context.Context, listingID, query string, photos []listing.PhotoRef) Ranking {
	urls := listing.NormalizePhotos(photos)
	if len(urls) == 0 || strings.TrimSpace(query) == "" {
		metrics.RankerOutcomesTotal.WithLabelValues(OutcomePassthrough).Inc()
		return Ranking{Photos: photos}
	}

	log := logger.FromContext(ctx).With(zap.String("listing_id", listingID))
	unranked := Ranking{Photos: listing.URLRefs(urls)}

	vec, err := r.embed.Embed(ctx, query)
	if err != nil {
		metrics.RankerOutcomesTotal.WithLabelValues(OutcomeUnranked).Inc()
		log.Warn("Photo ranking skipped, query not embedded", zap.Error(err))
		return unranked
	}

	matches, err := r.searchPhotos(ctx, vec, listingID, len(urls))
	if err != nil {
		metrics.RankerOutcomesTotal.WithLabelValues(OutcomeUnranked).Inc()
		log.Warn("Photo ranking skipped, image index failed", zap.Error(err))
		return unranked
	}

	best := make(map[string]float64, len(matches))
	for _, m := range matches {
		if s, ok := best[m.URL]; !ok || m.Score > s {
			best[m.URL] = m.Score
		}
	}

	ordered := make([]scored, len(urls))
	for i, u := range urls {
		s, ok := best[u]
		if !ok {
			s = unmatchedScore
		}
		ordered[i] = scored{url: u, score: s}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].score > ordered[j].score })

	out := make([]string, len(ordered))
	for i, o := range ordered {
		out[i] = o.url
	}

	metrics.RankerOutcomesTotal.WithLabelValues(OutcomeRanked).Inc()
	log.Debug("Photos ranked", zap.Int("photos", len(urls)), zap.Int("matches", len(matches)))
	return Ranking{Photos: listing.URLRefs(out), Ranked: true}
}

type scored struct {
	url   string
	score float64
}

func (r *Ranker) searchPhotos(ctx context.Context, vec []float32, listingID string, k int) ([]result.PhotoMatch, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.index.SearchPhotos(ctx, vec, listingID, k) //nolint:wrapcheck // logged by the caller
}
