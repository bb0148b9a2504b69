package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/kailas-cloud/vibesearch/internal/db"
)

// Compile-time check: Store implements db.VectorStore.
var _ db.VectorStore = (*Store)(nil)

// Collection layout shared by the listing and image collections.
const (
	FieldID       = "id"
	FieldVector   = "vector"
	FieldMetadata = "metadata"
)

// milvusClient is the subset of client.Client used by the store.
type milvusClient interface {
	Search(
		ctx context.Context, collName string, partitions []string,
		expr string, outputFields []string, vectors []entity.Vector,
		vectorField string, metricType entity.MetricType, topK int,
		sp entity.SearchParam, opts ...client.SearchQueryOptionFunc,
	) ([]client.SearchResult, error)
	HasCollection(ctx context.Context, collName string) (bool, error)
	Close() error
}

// Config holds connection parameters for a Milvus store.
type Config struct {
	Address  string
	Username string
	Password string
	DBName   string
	// PingCollection must exist for Ping to succeed.
	PingCollection string
}

// Store implements db.VectorStore on Milvus collections with a float
// vector field, a varchar primary key and a JSON metadata column.
type Store struct {
	client         milvusClient
	pingCollection string
}

// NewStore connects to Milvus.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: c, pingCollection: cfg.PingCollection}, nil
}

// Ping checks that the server answers and the ping collection exists.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.HasCollection(ctx, s.pingCollection)
	if err != nil {
		return &db.Error{Op: db.OpHasCollection, Err: err}
	}
	if !ok {
		return &db.Error{Op: db.OpHasCollection, Err: db.ErrIndexNotFound}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	_ = s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.WaitForReady(ctx, s, timeout)
}

// SearchKNN runs a cosine ANN search on the collection named by q.IndexName.
// Metadata is returned whole as a JSON string under the "metadata" field,
// so q.ReturnFields only decides whether it is fetched at all.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("search param: %w", err)
	}

	res, err := s.client.Search(
		ctx,
		q.IndexName,
		nil,
		buildExpr(q.Filters),
		[]string{FieldMetadata},
		[]entity.Vector{entity.FloatVector(q.Vector)},
		FieldVector,
		entity.COSINE,
		q.K,
		sp,
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpVectorSearch, Err: err}
	}

	return parseResults(res)
}

func parseResults(res []client.SearchResult) (*db.SearchResult, error) {
	if len(res) == 0 {
		return &db.SearchResult{}, nil
	}
	sr := res[0]
	if sr.Err != nil {
		return nil, &db.Error{Op: db.OpVectorSearch, Err: sr.Err}
	}
	if sr.IDs == nil || sr.ResultCount == 0 {
		return &db.SearchResult{}, nil
	}

	metaCol := column(sr.Fields, FieldMetadata)

	entries := make([]db.SearchEntry, 0, sr.ResultCount)
	for i := 0; i < sr.ResultCount && i < len(sr.Scores); i++ {
		id, err := sr.IDs.GetAsString(i)
		if err != nil {
			continue
		}
		entry := db.SearchEntry{
			Key:    id,
			Score:  float64(sr.Scores[i]), // COSINE metric already reports similarity
			Fields: map[string]string{},
		}
		if metaCol != nil {
			if v, err := metaCol.Get(i); err == nil {
				if raw, ok := v.([]byte); ok && json.Valid(raw) {
					entry.Fields[FieldMetadata] = string(raw)
				}
			}
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func column(cols client.ResultSet, name string) entity.Column {
	for _, c := range cols {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
