package search

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kailas-cloud/vibesearch/internal/domain"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/request"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/result"
	"github.com/kailas-cloud/vibesearch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockRepo struct {
	results     []result.Result
	err         error
	block       bool
	called      bool
	lastFilters filter.Expression
	lastK       int
}

func (m *mockRepo) SearchListings(
	ctx context.Context, _ []float32, filters filter.Expression, k int,
) ([]result.Result, error) {
	m.called = true
	m.lastFilters = filters
	m.lastK = k
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.results, m.err
}

type mockResolver struct {
	vec       []float32
	err       error
	lastText  string
	lastImage []string
}

func (m *mockResolver) Resolve(_ context.Context, text string, images []string) ([]float32, error) {
	m.lastText = text
	m.lastImage = images
	return m.vec, m.err
}

func hits(scores ...float64) []result.Result {
	out := make([]result.Result, len(scores))
	for i, s := range scores {
		out[i] = result.New(string(rune('a'+i)), s, map[string]any{"propertyName": string(rune('A' + i))})
	}
	return out
}

func mustRequest(t *testing.T, text string, images []string, fs filter.Set, limit int) request.Request {
	t.Helper()
	req, err := request.New(text, images, fs, limit, 0)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return req
}

// --- Gateway ---

func TestGateway_SortsAndLimits(t *testing.T) {
	repo := &mockRepo{results: hits(0.2, 0.9, 0.5, 0.9)}
	g := NewGateway(repo, 0)

	got := g.Search(context.Background(), []float32{1}, filter.Expression{}, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score() > got[i-1].Score() {
			t.Errorf("scores not non-increasing: %v > %v", got[i].Score(), got[i-1].Score())
		}
	}
	if got[0].ID() != "b" || got[1].ID() != "d" {
		t.Errorf("ties must keep index order, got %s,%s", got[0].ID(), got[1].ID())
	}
	if got[0].Metadata()["propertyName"] != "B" {
		t.Error("metadata must pass through")
	}
}

func TestGateway_NeverFails(t *testing.T) {
	tests := []struct {
		name string
		repo *mockRepo
	}{
		{"backend error", &mockRepo{err: errors.New("connection refused")}},
		{"no matches", &mockRepo{}},
		{"timeout", &mockRepo{block: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewGateway(tt.repo, 20*time.Millisecond).Search(context.Background(), []float32{1}, filter.Expression{}, 5)
			if got == nil || len(got) != 0 {
				t.Fatalf("expected empty non-nil slice, got %v", got)
			}
		})
	}
}

func TestGateway_SkipsBackendForEmptyInput(t *testing.T) {
	repo := &mockRepo{results: hits(1)}
	g := NewGateway(repo, 0)

	if got := g.Search(context.Background(), nil, filter.Expression{}, 5); len(got) != 0 {
		t.Errorf("expected no results for empty vector, got %d", len(got))
	}
	if got := g.Search(context.Background(), []float32{1}, filter.Expression{}, 0); len(got) != 0 {
		t.Errorf("expected no results for zero limit, got %d", len(got))
	}
	if repo.called {
		t.Error("backend must not be queried")
	}
}

// --- Service ---

func TestService_TextSearch(t *testing.T) {
	repo := &mockRepo{results: hits(0.3, 0.8, 0.6)}
	res := &mockResolver{vec: []float32{0.1}}
	svc := New(res, NewGateway(repo, 0))

	got := svc.Search(context.Background(), mustRequest(t, "modern apartment with pool", nil, filter.Set{}, 3))

	if res.lastText != "modern apartment with pool" {
		t.Errorf("resolver got %q", res.lastText)
	}
	if repo.lastK != 3 || !repo.lastFilters.IsEmpty() {
		t.Errorf("repo called with k=%d filters=%d", repo.lastK, repo.lastFilters.Len())
	}
	if len(got) != 3 || got[0].Score() != 0.8 {
		t.Errorf("unexpected results %v", got)
	}
}

func TestService_UnresolvableIsEmpty(t *testing.T) {
	repo := &mockRepo{results: hits(1)}
	res := &mockResolver{err: domain.ErrQueryUnresolvable}
	svc := New(res, NewGateway(repo, 0))

	got := svc.Search(context.Background(), mustRequest(t, "", []string{"u1", "u2"}, filter.Set{}, 0))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty results, got %v", got)
	}
	if repo.called {
		t.Error("index must not be queried without a vector")
	}
	if len(res.lastImage) != 2 {
		t.Errorf("resolver got %d images", len(res.lastImage))
	}
}

func TestService_PassesAsymmetricPriceFilters(t *testing.T) {
	floor, ceiling := 1000.0, 3000.0
	beds := [2]float64{2, 3}
	fs := filter.Set{
		PriceMin: &floor,
		PriceMax: &ceiling,
		Bedrooms: &filter.Bounds{Min: &beds[0], Max: &beds[1]},
	}
	repo := &mockRepo{}
	svc := New(&mockResolver{vec: []float32{1}}, NewGateway(repo, 0))

	svc.Search(context.Background(), mustRequest(t, "loft", nil, fs, 10))

	got := map[string]*filter.Range{}
	for _, c := range repo.lastFilters.Must() {
		got[c.Key()] = c.Range()
	}
	if r := got[filter.FieldPriceMin]; r == nil || r.GTE() == nil || *r.GTE() != 1000 || r.LTE() != nil {
		t.Error("price_min must reach the index as >= 1000")
	}
	if r := got[filter.FieldPriceMax]; r == nil || r.LTE() == nil || *r.LTE() != 3000 || r.GTE() != nil {
		t.Error("price_max must reach the index as <= 3000")
	}
	if r := got[filter.FieldBedrooms]; r == nil || *r.GTE() != 2 || *r.LTE() != 3 {
		t.Error("bedrooms must reach the index as [2,3]")
	}
	if _, ok := got["price"]; ok {
		t.Error("price must not be flattened")
	}
}
