package db

import (
	"context"
)

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs queries against the search daemon.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}

// Excerpter asks the search daemon for highlighted excerpts.
type Excerpter interface {
	Excerpt(ctx context.Context, q *ExcerptQuery) ([]string, error)
}

// Daemon is the full search daemon client.
type Daemon interface {
	Pinger
	Searcher
	Excerpter
}

// HashStore reads records stored as hashes.
type HashStore interface {
	Pinger
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HMGetMulti(ctx context.Context, keys []string, field string) ([]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// RowStore reads records stored as SQL rows.
type RowStore interface {
	Pinger
	SelectByIDs(ctx context.Context, table, idColumn string, ids []uint64) ([]map[string]string, error)
	SelectDistinct(ctx context.Context, table, column string) ([]string, error)
}
