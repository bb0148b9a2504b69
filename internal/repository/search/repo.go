package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/vibesearch/internal/db"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/result"
)

// Image index attributes.
const (
	FieldListingID = "listing_id"
	FieldSourceURL = "source_url"
	// fieldImageURL is the legacy name of source_url in older image entries.
	fieldImageURL = "image_url"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config names the two indexes and the key prefix of listing documents.
type Config struct {
	ListingIndex     string
	ImageIndex       string
	ListingKeyPrefix string
}

// Repo implements the listing and per-image index queries.
type Repo struct {
	store store
	cfg   Config
}

// New creates a search repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// SearchListings runs a filtered KNN query against the listings index.
// An empty expression reaches the store as "no filter".
func (r *Repo) SearchListings(
	ctx context.Context, vector []float32, filters filter.Expression, k int,
) ([]result.Result, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.cfg.ListingIndex,
		Filters:   filters,
		Vector:    vector,
		K:         k,
	})
	if err != nil {
		return nil, fmt.Errorf("search listings %s: %w", r.cfg.ListingIndex, err)
	}
	if sr == nil {
		return nil, nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, r.cfg.ListingKeyPrefix)
		results = append(results, result.New(id, entry.Score, entryMetadata(entry)))
	}
	return results, nil
}

// SearchPhotos queries the image index scoped to one listing.
func (r *Repo) SearchPhotos(
	ctx context.Context, vector []float32, listingID string, k int,
) ([]result.PhotoMatch, error) {
	scope, err := filter.NewMatch(FieldListingID, listingID)
	if err != nil {
		return nil, fmt.Errorf("listing scope: %w", err)
	}
	expr, err := filter.NewExpression([]filter.Condition{scope}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing scope: %w", err)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.ImageIndex,
		Filters:      expr,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{FieldListingID, FieldSourceURL, fieldImageURL},
	})
	if err != nil {
		return nil, fmt.Errorf("search photos %s: %w", r.cfg.ImageIndex, err)
	}
	if sr == nil {
		return nil, nil
	}

	matches := make([]result.PhotoMatch, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		url := sourceURL(entry)
		if url == "" {
			continue
		}
		matches = append(matches, result.PhotoMatch{URL: url, Score: entry.Score})
	}
	return matches, nil
}

// entryMetadata returns the document attributes as the index stored them.
// JSON documents arrive whole under "$" (Redis) or "metadata" (Milvus);
// hash documents arrive as flat string fields.
func entryMetadata(entry db.SearchEntry) map[string]any {
	for _, key := range []string{"$", "metadata"} {
		raw, ok := entry.Fields[key]
		if !ok {
			continue
		}
		if meta := decodeObject(raw); meta != nil {
			return meta
		}
	}

	meta := make(map[string]any, len(entry.Fields))
	for k, v := range entry.Fields {
		if k == "vector" {
			continue
		}
		meta[k] = v
	}
	return meta
}

func sourceURL(entry db.SearchEntry) string {
	if u := entry.Fields[FieldSourceURL]; u != "" {
		return u
	}
	if u := entry.Fields[fieldImageURL]; u != "" {
		return u
	}
	meta := entryMetadata(entry)
	for _, key := range []string{FieldSourceURL, fieldImageURL} {
		if u, ok := meta[key].(string); ok && u != "" {
			return u
		}
	}
	return ""
}

// decodeObject parses a JSON object. RedisJSON wraps "$" results in an array.
func decodeObject(raw string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj
	}
	var arr []map[string]any
	if err := json.Unmarshal([]byte(raw), &arr); err == nil && len(arr) == 1 {
		return arr[0]
	}
	return nil
}
