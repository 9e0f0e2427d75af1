package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
)

// Daemon is the search daemon as the pipeline uses it.
type Daemon interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	Excerpt(ctx context.Context, q *db.ExcerptQuery) ([]string, error)
}

// RecordStore loads matched records by native id, one entity type per call.
// Records it cannot find are simply absent from the result.
type RecordStore interface {
	Fetch(ctx context.Context, entityType string, ids []uint64) ([]result.Record, error)
}

// FacetResolver maps hashed text facet values back to text.
type FacetResolver interface {
	Lookup(ctx context.Context, facet string, entityTypes []string, hashes []uint32) (map[uint32]string, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
