package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vibesearch/internal/db"
	"github.com/kailas-cloud/vibesearch/internal/domain"
	"github.com/kailas-cloud/vibesearch/internal/domain/listing"
)

// store is the consumer interface for JSON-backed listings (ISP).
type store interface {
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Ping(ctx context.Context) error
}

// RedisStore reads listing documents stored as RedisJSON under <prefix><id>.
type RedisStore struct {
	store     store
	keyPrefix string
}

// NewRedisStore creates a Redis-backed listing store.
func NewRedisStore(s store, keyPrefix string) *RedisStore {
	return &RedisStore{store: s, keyPrefix: keyPrefix}
}

// Get returns the record with exactly this id.
func (r *RedisStore) Get(ctx context.Context, id string) (listing.Listing, error) {
	if id == "" {
		return listing.Listing{}, fmt.Errorf("listing %q: %w", id, domain.ErrListingNotFound)
	}

	data, err := r.store.JSONGet(ctx, r.keyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return listing.Listing{}, fmt.Errorf("listing %q: %w", id, domain.ErrListingNotFound)
		}
		return listing.Listing{}, fmt.Errorf("get listing %q: %w", id, err)
	}

	l, err := listing.ParseKeyed(id, data)
	if err != nil {
		return listing.Listing{}, fmt.Errorf("decode listing %q: %w", id, err)
	}
	return l, nil
}

// Ping checks the underlying store.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}
