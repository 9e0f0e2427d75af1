package record

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
)

// hashStore is the consumer interface for hash-backed records (ISP).
type hashStore interface {
	Ping(ctx context.Context) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HMGetMulti(ctx context.Context, keys []string, field string) ([]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// RedisStore reads records stored as hashes under <prefix><EntityType>:<id>.
type RedisStore struct {
	store  hashStore
	prefix string
}

// NewRedis creates a hash-backed record store.
func NewRedis(s hashStore, keyPrefix string) *RedisStore {
	return &RedisStore{store: s, prefix: keyPrefix}
}

// Ping checks the backend.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Fetch loads the records of one entity type in a single pipeline.
// Missing records are absent from the result.
func (r *RedisStore) Fetch(ctx context.Context, entityType string, ids []uint64) ([]result.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(entityType, id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch %s records: %w", entityType, err)
	}

	out := make([]result.Record, 0, len(maps))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		out = append(out, result.New(entityType, ids[i], m))
	}
	return out, nil
}

// DistinctValuesWithHash lists every distinct value of field across the
// entity type's records.
func (r *RedisStore) DistinctValuesWithHash(ctx context.Context, entityType, field string) ([]FacetValue, error) {
	keys, err := r.store.Scan(ctx, r.prefix+entityType+":*")
	if err != nil {
		return nil, fmt.Errorf("scan %s records: %w", entityType, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.store.HMGetMulti(ctx, keys, field)
	if err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", entityType, field, err)
	}
	return facetValues(values), nil
}

func (r *RedisStore) key(entityType string, id uint64) string {
	return r.prefix + entityType + ":" + formatID(id)
}
