// Package facetcache maps hashed facet attribute values back to the text they
// were computed from.
package facetcache

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/metrics"
	"github.com/kailas-cloud/unisearch/internal/repository/record"
)

// source is the consumer interface for rebuilding a facet (ISP).
type source interface {
	DistinctValuesWithHash(ctx context.Context, entityType, field string) ([]record.FacetValue, error)
}

// Cache is the process-wide hash → value map, one table per text facet.
// Tables only grow; a miss rebuilds the facet's table from the record store.
// Entries are never dropped automatically, see Invalidate.
type Cache struct {
	source  source
	metrics *metrics.Search
	logger  *zap.Logger

	mu      sync.RWMutex
	entries map[string]map[uint32]string
	group   singleflight.Group
}

// New creates an empty cache. m may be nil.
func New(s source, m *metrics.Search, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		source:  s,
		metrics: m,
		logger:  logger,
		entries: make(map[string]map[uint32]string),
	}
}

// Lookup resolves hashes of facet to their text values. entityTypes lists
// the types that declare facet; they are scanned on a rebuild.
// A hash absent from the record store even after a rebuild is an
// ErrConfiguration: the index was built from different data.
func (c *Cache) Lookup(
	ctx context.Context, facet string, entityTypes []string, hashes []uint32,
) (map[uint32]string, error) {
	out, missing := c.resolve(facet, hashes)
	c.metrics.FacetLookup(len(missing) == 0)
	if len(missing) == 0 {
		return out, nil
	}

	if err := c.rebuild(ctx, facet, entityTypes); err != nil {
		return nil, err
	}

	out, missing = c.resolve(facet, hashes)
	if len(missing) > 0 {
		return nil, domain.Configurationf(
			"facet %q: value hash %d not found in the record store; the index seems out of date",
			facet, missing[0])
	}
	return out, nil
}

// Invalidate drops the table of facet so the next lookup rebuilds it.
func (c *Cache) Invalidate(facet string) {
	c.mu.Lock()
	delete(c.entries, facet)
	c.mu.Unlock()
}

// Len returns the number of cached values for facet.
func (c *Cache) Len(facet string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[facet])
}

func (c *Cache) resolve(facet string, hashes []uint32) (map[uint32]string, []uint32) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	table := c.entries[facet]
	out := make(map[uint32]string, len(hashes))
	var missing []uint32
	for _, h := range hashes {
		if v, ok := table[h]; ok {
			out[h] = v
		} else {
			missing = append(missing, h)
		}
	}
	return out, missing
}

// rebuild recomputes facet's table. Concurrent misses on the same facet
// share one rebuild.
func (c *Cache) rebuild(ctx context.Context, facet string, entityTypes []string) error {
	_, err, _ := c.group.Do(facet, func() (any, error) {
		table := make(map[uint32]string)
		for _, et := range entityTypes {
			values, err := c.source.DistinctValuesWithHash(ctx, et, facet)
			if err != nil {
				return nil, fmt.Errorf("rebuild facet %s from %s: %w", facet, et, err)
			}
			for _, v := range values {
				if prev, ok := table[v.Hash]; ok && prev != v.Value {
					return nil, domain.Responsef(
						"facet %q: hash collision between %q and %q", facet, prev, v.Value)
				}
				table[v.Hash] = v.Value
			}
		}

		c.mu.Lock()
		old := c.entries[facet]
		for h, v := range old {
			if _, ok := table[h]; !ok {
				table[h] = v
			}
		}
		c.entries[facet] = table
		c.mu.Unlock()

		c.metrics.FacetRebuild(facet)
		c.logger.Info("Rebuilt facet cache",
			zap.String("facet", facet),
			zap.Strings("entity_types", entityTypes),
			zap.Int("values", len(table)),
		)
		return nil, nil
	})
	return err
}
