package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/vibesearch/internal/db"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
)

// --- client.go tests ---

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.Ping(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestWaitForReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- json.go tests ---

func TestJSONGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "JSON.GET" && cmd[1] == "vibesearch:listing:apt-1"
		})).
		Return(mock.Result(mock.RedisString(`{"id":"apt-1"}`)))

	s := NewStoreForTest(c)
	data, err := s.JSONGet(context.Background(), "vibesearch:listing:apt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"id":"apt-1"}` {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestJSONGet_WithPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "JSON.GET" && len(cmd) == 3 && cmd[2] == "$.photos"
		})).
		Return(mock.Result(mock.RedisString(`[["a.jpg"]]`)))

	s := NewStoreForTest(c)
	if _, err := s.JSONGet(context.Background(), "k", "$.photos"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJSONGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "JSON.GET"
		})).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.JSONGet(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestJSONGet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "JSON.GET"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.JSONGet(context.Background(), "mykey")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		t.Error("should not be ErrKeyNotFound for network errors")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

// --- cache.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisBlobString("value")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestPut_NoTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "value")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Put(context.Background(), "mykey", []byte("value"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPut_WithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && cmd[1] == "mykey" && slices.Contains(cmd, "EX")
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Put(context.Background(), "mykey", []byte("value"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPut_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SET" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.Put(context.Background(), "mykey", []byte("value"), 0)
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2), // total
			mock.RedisString("listing:apt-1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("0.1"), // distance 0.1 → similarity 0.9
				mock.RedisString("city"),
				mock.RedisString("Austin"),
			),
			mock.RedisString("listing:apt-2"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("1.5"), // opposite direction → negative similarity
			),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1, 0.2},
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got total=%d entries=%d", result.Total, len(result.Entries))
	}
	first := result.Entries[0]
	if first.Key != "listing:apt-1" {
		t.Errorf("expected key listing:apt-1, got %s", first.Key)
	}
	if first.Score < 0.89 || first.Score > 0.91 {
		t.Errorf("expected score ~0.9, got %f", first.Score)
	}
	if _, ok := first.Fields["__vector_score"]; ok {
		t.Error("score field must be stripped from Fields")
	}
	if first.Fields["city"] != "Austin" {
		t.Errorf("Fields = %v", first.Fields)
	}
	if got := result.Entries[1].Score; got > -0.49 || got < -0.51 {
		t.Errorf("expected score ~-0.5 (unclamped), got %f", got)
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         10,
	})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
	if errors.Is(err, db.ErrIndexNotFound) {
		t.Error("timeouts are not ErrIndexNotFound")
	}
}

func TestSearchKNN_IndexNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisError("idx: no such index")))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         10,
	})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	_, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10})
	if err == nil {
		t.Error("expected error for empty index name")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 10})
	if err == nil {
		t.Error("expected error for empty vector")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}, K: 0})
	if err == nil {
		t.Error("expected error for k=0")
	}
}

func TestBuildKNNArgs_NoFilter(t *testing.T) {
	args := buildKNNArgs(&db.KNNQuery{IndexName: "listings", Vector: []float32{1}, K: 3})

	if args[0] != "listings" {
		t.Errorf("index = %q", args[0])
	}
	if args[1] != "*=>[KNN 3 @vector $BLOB]" {
		t.Errorf("query = %q", args[1])
	}
	i := slices.Index(args, "LIMIT")
	if i < 0 || args[i+1] != "0" || args[i+2] != "3" {
		t.Errorf("LIMIT must match K, args = %v", args)
	}
	if !slices.Contains(args, "SORTBY") {
		t.Error("results must be sorted by score")
	}
	if slices.Contains(args, "RETURN") {
		t.Error("no RETURN clause when all fields are requested")
	}
}

func TestBuildKNNArgs_FilterAndReturn(t *testing.T) {
	cond, _ := filter.NewMatch("listing_id", "apt-1")
	expr, _ := filter.NewExpression([]filter.Condition{cond}, nil, nil)

	args := buildKNNArgs(&db.KNNQuery{
		IndexName:    "images",
		Vector:       []float32{1},
		K:            4,
		Filters:      expr,
		ReturnFields: []string{"source_url"},
	})

	if args[1] != "(@listing_id:{apt\\-1})=>[KNN 4 @vector $BLOB]" {
		t.Errorf("query = %q", args[1])
	}
	i := slices.Index(args, "RETURN")
	if i < 0 || args[i+1] != "2" || args[i+2] != "__vector_score" || args[i+3] != "source_url" {
		t.Errorf("RETURN clause = %v", args)
	}
}

// --- Filter building tests ---

func TestBuildFilter_Empty(t *testing.T) {
	result := buildFilter(filter.Expression{})
	if result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestBuildFilter_MustTag(t *testing.T) {
	cond, _ := filter.NewMatch("city", "Austin")
	expr, _ := filter.NewExpression([]filter.Condition{cond}, nil, nil)

	result := buildFilter(expr)
	if result != `@city:{Austin}` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_TagEscaping(t *testing.T) {
	cond, _ := filter.NewMatch("city", "Los Angeles")
	expr, _ := filter.NewExpression([]filter.Condition{cond}, nil, nil)

	result := buildFilter(expr)
	if result != `@city:{Los\ Angeles}` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_Flag(t *testing.T) {
	cond, _ := filter.NewFlag("is_studio")
	expr, _ := filter.NewExpression([]filter.Condition{cond}, nil, nil)

	result := buildFilter(expr)
	if result != `@is_studio:{true}` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_FieldNameEscaping(t *testing.T) {
	odd, _ := filter.NewFlag("in-unit laundry")
	pool, _ := filter.NewFlag("pool")
	expr, _ := filter.NewExpression(nil, []filter.Condition{odd, pool}, nil)

	result := buildFilter(expr)
	if result != `(@in\-unit\ laundry:{true} | @pool:{true})` {
		t.Errorf("unexpected filter: %q", result)
	}

	r, _ := filter.NewRange("x}|(@city", filter.AtLeast(1))
	expr, _ = filter.NewExpression([]filter.Condition{r}, nil, nil)
	if result := buildFilter(expr); result != `@x\}\|\(\@city:[1 +inf]` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_HyphenatedAmenity(t *testing.T) {
	expr, err := filter.Set{Amenities: []string{"In-unit Laundry", "pool"}}.Expression()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result := buildFilter(expr); result != `(@in_unit_laundry:{true} | @pool:{true})` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_ListingSet(t *testing.T) {
	floor, ceiling, beds := 1000.0, 3000.0, 2.0
	set := filter.Set{
		PriceMin:  &floor,
		PriceMax:  &ceiling,
		Bedrooms:  &filter.Bounds{Min: &beds},
		Amenities: []string{"Pool", "In Unit Laundry"},
	}
	expr, err := set.Expression()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := buildFilter(expr)
	want := `@price_min:[1000 +inf] @price_max:[-inf 3000] @bedrooms:[2 1000] (@pool:{true} | @in_unit_laundry:{true})`
	if result != want {
		t.Errorf("filter =\n  %q\nwant\n  %q", result, want)
	}
	if strings.Contains(result, "@price:") {
		t.Error("price must not collapse into a single field")
	}
}

func TestBuildFilter_Should(t *testing.T) {
	cond1, _ := filter.NewMatch("state", "TX")
	cond2, _ := filter.NewMatch("state", "CA")
	expr, _ := filter.NewExpression(nil, []filter.Condition{cond1, cond2}, nil)

	result := buildFilter(expr)
	if result != `(@state:{TX} | @state:{CA})` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildFilter_MustNot(t *testing.T) {
	cond, _ := filter.NewFlag("has_available_units")
	expr, _ := filter.NewExpression(nil, nil, []filter.Condition{cond})

	result := buildFilter(expr)
	if result != `-@has_available_units:{true}` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildNumericFilter_GTonly(t *testing.T) {
	gt := 5.0
	rng, _ := filter.NewRangeFilter(&gt, nil, nil, nil)
	result := buildNumericFilter("sqft", rng)
	if result != `@sqft:[(5 +inf]` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestBuildNumericFilter_LTonly(t *testing.T) {
	lt := 100.0
	rng, _ := filter.NewRangeFilter(nil, nil, &lt, nil)
	result := buildNumericFilter("sqft", rng)
	if result != `@sqft:[-inf (100]` {
		t.Errorf("unexpected filter: %q", result)
	}
}

func TestVectorToBytes(t *testing.T) {
	v := []float32{1.0, 2.0}
	b := vectorToBytes(v)
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	// 1.0f little-endian
	if b[:4] != "\x00\x00\x80\x3f" {
		t.Errorf("unexpected encoding % x", b[:4])
	}
}

func TestIsRedisErr(t *testing.T) {
	if isRedisErr(context.Canceled, "canceled") {
		t.Error("non-redis errors must not match")
	}
	re := rueidis.RedisError(mock.RedisError("Idx: No Such Index"))
	if !isRedisErr(&re, "no such index") {
		t.Error("redis error should match case-insensitively")
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
