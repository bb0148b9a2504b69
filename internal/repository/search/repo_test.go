package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vibesearch/internal/db"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
)

// --- SearchListings ---

func TestSearchListings_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "vibesearch:listings:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.K != 3 {
			t.Errorf("unexpected K: %d", q.K)
		}
		if !q.Filters.IsEmpty() {
			t.Error("expected no filter")
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{
					Key:    "vibesearch:listing:apt-1",
					Score:  0.877,
					Fields: map[string]string{"$": `{"city":"Austin","bedrooms":2,"pool":true}`},
				},
				{
					Key:    "vibesearch:listing:apt-2",
					Score:  0.544,
					Fields: map[string]string{"city": "Dallas", "vector": "\x00\x01"},
				},
			},
		}, nil
	}

	results, err := repo.SearchListings(ctx, testVector(), filter.Expression{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID() != "apt-1" {
		t.Fatalf("expected ID apt-1, got %s", results[0].ID())
	}
	if results[0].Score() != 0.877 {
		t.Fatalf("expected score 0.877, got %f", results[0].Score())
	}
	meta := results[0].Metadata()
	if meta["city"] != "Austin" || meta["bedrooms"] != 2.0 || meta["pool"] != true {
		t.Errorf("metadata = %v", meta)
	}
	if _, ok := results[1].Metadata()["vector"]; ok {
		t.Error("raw vector must not leak into metadata")
	}
	if results[1].Metadata()["city"] != "Dallas" {
		t.Errorf("hash metadata = %v", results[1].Metadata())
	}
}

func TestSearchListings_MilvusMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:    "apt-9",
			Score:  0.5,
			Fields: map[string]string{"metadata": `{"state":"CA"}`},
		}}}, nil
	}

	results, err := repo.SearchListings(context.Background(), testVector(), filter.Expression{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].ID() != "apt-9" || results[0].Metadata()["state"] != "CA" {
		t.Errorf("result = %s %v", results[0].ID(), results[0].Metadata())
	}
}

func TestSearchListings_WrappedJSONArray(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:    "vibesearch:listing:apt-3",
			Fields: map[string]string{"$": `[{"city":"Reno"}]`},
		}}}, nil
	}

	results, _ := repo.SearchListings(context.Background(), testVector(), filter.Expression{}, 1)
	if results[0].Metadata()["city"] != "Reno" {
		t.Errorf("metadata = %v", results[0].Metadata())
	}
}

func TestSearchListings_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 0}, nil
	}

	results, err := repo.SearchListings(context.Background(), testVector(), filter.Expression{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestSearchListings_Error(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}

	_, err := repo.SearchListings(context.Background(), testVector(), filter.Expression{}, 10)
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected wrapped ErrIndexNotFound, got %v", err)
	}
}

func TestSearchListings_PassesFilter(t *testing.T) {
	repo, ms := newTestRepo(t)
	floor := 1000.0
	expr, err := filter.Set{PriceMin: &floor}.Expression()
	if err != nil {
		t.Fatalf("Expression: %v", err)
	}

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if len(q.Filters.Must()) != 1 || q.Filters.Must()[0].Key() != filter.FieldPriceMin {
			t.Errorf("filters not passed through: %+v", q.Filters.Must())
		}
		return &db.SearchResult{}, nil
	}

	if _, err := repo.SearchListings(context.Background(), testVector(), expr, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- SearchPhotos ---

func TestSearchPhotos_ScopedToListing(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "vibesearch:images:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.K != 4 {
			t.Errorf("unexpected K: %d", q.K)
		}
		must := q.Filters.Must()
		if len(must) != 1 || must[0].Key() != FieldListingID || must[0].Match() != "apt-1" {
			t.Errorf("image query must be scoped to the listing, got %+v", must)
		}
		return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
			{Key: "apt-1_0", Score: 0.8, Fields: map[string]string{"source_url": "https://img/0.jpg"}},
			{Key: "apt-1_1", Score: 0.7, Fields: map[string]string{"metadata": `{"image_url":"https://img/1.jpg"}`}},
			{Key: "apt-1_2", Score: 0.6, Fields: map[string]string{"description": "no url"}},
		}}, nil
	}

	matches, err := repo.SearchPhotos(context.Background(), testVector(), "apt-1", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches (entry without url skipped), got %d", len(matches))
	}
	if matches[0].URL != "https://img/0.jpg" || matches[0].Score != 0.8 {
		t.Errorf("match[0] = %+v", matches[0])
	}
	if matches[1].URL != "https://img/1.jpg" {
		t.Errorf("match[1] = %+v", matches[1])
	}
}

func TestSearchPhotos_LegacyImageURLField(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		requested := false
		for _, f := range q.ReturnFields {
			if f == fieldImageURL {
				requested = true
			}
		}
		if !requested {
			t.Errorf("return fields %v must include %s", q.ReturnFields, fieldImageURL)
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			{Key: "apt-1_0", Score: 0.9, Fields: map[string]string{"listing_id": "apt-1", "image_url": "https://img/old.jpg"}},
		}}, nil
	}

	matches, err := repo.SearchPhotos(context.Background(), testVector(), "apt-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].URL != "https://img/old.jpg" {
		t.Errorf("matches = %+v", matches)
	}
}

func TestSearchPhotos_EmptyListingID(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		t.Fatal("unscoped image queries must never reach the store")
		return nil, nil
	}

	if _, err := repo.SearchPhotos(context.Background(), testVector(), "", 4); err == nil {
		t.Fatal("expected error for empty listing id")
	}
}

func TestSearchPhotos_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errors.New("timeout")
	}

	if _, err := repo.SearchPhotos(context.Background(), testVector(), "apt-1", 4); err == nil {
		t.Fatal("expected error")
	}
}
