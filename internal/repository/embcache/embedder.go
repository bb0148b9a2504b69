package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/db"
	"github.com/kailas-cloud/vibesearch/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// Cache tiers, used as the "tier" metric label.
const (
	TierMemory = "memory"
	TierShared = "shared"
)

// DefaultCapacity is the in-process cache size when none is configured.
const DefaultCapacity = 1024

// store is the consumer interface for the shared cache tier (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder caches embeddings in a bounded in-process LRU keyed on the
// exact input text, backed by an optional shared key-value tier.
// It is safe for concurrent use; concurrent misses for one text both reach
// the inner embedder and store the same vector.
type CachedEmbedder struct {
	inner      domain.Embedder
	memory     *lru.Cache[string, []float32]
	store      store
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Option configures a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithSharedStore adds a key-value tier shared between processes.
// Keys include the model name so vectors of different models never mix.
// ttl <= 0 stores entries without expiry.
func WithSharedStore(s store, model string, ttl time.Duration) Option {
	return func(c *CachedEmbedder) {
		c.store = s
		c.model = model
		c.ttl = ttl
	}
}

// New creates a caching decorator.
// cacheTotal is a counter vec with labels "tier" and "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	capacity int,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
	opts ...Option,
) (*CachedEmbedder, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	memory, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	c := &CachedEmbedder{
		inner:      inner,
		memory:     memory,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if vec, ok := c.memory.Get(text); ok {
		c.incCache(TierMemory, "hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.incCache(TierMemory, "miss")

	var key string
	if c.store != nil {
		key = c.cacheKey(text)
		if vec, ok := c.getShared(ctx, key); ok {
			c.incCache(TierShared, "hit")
			c.memory.Add(text, vec)
			return domain.EmbeddingResult{Embedding: vec}, nil
		}
		c.incCache(TierShared, "miss")
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.memory.Add(text, result.Embedding)
	if c.store != nil {
		c.putShared(ctx, key, result.Embedding)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Len returns the number of in-process entries.
func (c *CachedEmbedder) Len() int {
	return c.memory.Len()
}

func (c *CachedEmbedder) incCache(tier, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(tier, result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) getShared(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putShared(ctx context.Context, key string, vec []float32) {
	if err := c.store.Put(ctx, key, vectorToCacheBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
