package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/field"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
)

// --- Fixtures ---

func mustField(name string, ft field.Type, types ...string) field.Field {
	f, err := field.New(name, ft, types...)
	if err != nil {
		panic(err)
	}
	return f
}

func testSchema() Schema {
	return Schema{
		Registry: entity.MustNewRegistry(map[string]int{"Album": 0, "Song": 1, "User": 2}),
		Fields: field.MustNewSet(
			mustField("title", field.Text, "Album", "Song"),
			mustField("body", field.Text, "Song"),
			mustField("name", field.Text, "User"),
			mustField("genre", field.Text, "Album", "Song"),
			mustField("genre_facet", field.Numeric, "Album", "Song"),
			mustField("year", field.Numeric, "Album", "Song"),
			mustField("rating", field.Numeric, "Song"),
			mustField("released", field.Date, "Album"),
		),
	}
}

func testConfig() Config {
	return Config{
		Index:      domain.UnifiedIndexName,
		MaxMatches: 1000,
		MaxFacets:  100,
		Excerpt:    DefaultExcerptConfig(),
	}
}

// flat encodes a record id the way the index does for testSchema.
func flat(entityTypeID int, id uint64) uint64 { return id*3 + uint64(entityTypeID) }

func groupMatch(value, count int64) db.Match {
	return db.Match{Attrs: map[string]any{
		domain.GroupByAttribute:    value,
		domain.GroupCountAttribute: count,
	}}
}

// --- Mocks ---

type fakeDaemon struct {
	mu        sync.Mutex
	searchFn  func(q *db.SearchQuery) (*db.SearchResult, error)
	excerptFn func(q *db.ExcerptQuery) ([]string, error)
	searches  []*db.SearchQuery
	excerpts  []*db.ExcerptQuery
}

func (f *fakeDaemon) Search(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	f.mu.Lock()
	f.searches = append(f.searches, q)
	f.mu.Unlock()
	if f.searchFn != nil {
		return f.searchFn(q)
	}
	return &db.SearchResult{}, nil
}

func (f *fakeDaemon) Excerpt(_ context.Context, q *db.ExcerptQuery) ([]string, error) {
	f.mu.Lock()
	f.excerpts = append(f.excerpts, q)
	f.mu.Unlock()
	if f.excerptFn != nil {
		return f.excerptFn(q)
	}
	out := make([]string, len(q.Docs))
	for i, d := range q.Docs {
		out[i] = "<strong>" + d + "</strong>"
	}
	return out, nil
}

// fakeRecords serves records from memory; fetches of one type can be delayed
// with a gate to force out-of-order completion.
type fakeRecords struct {
	mu      sync.Mutex
	records map[string]map[uint64]map[string]string
	gates   map[string]chan struct{}
	err     error
	fetches []string
}

func (f *fakeRecords) Fetch(_ context.Context, entityType string, ids []uint64) ([]result.Record, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, entityType)
	gate := f.gates[entityType]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	var out []result.Record
	for _, id := range ids {
		if vals, ok := f.records[entityType][id]; ok {
			out = append(out, result.New(entityType, id, vals))
		}
	}
	return out, nil
}

type fakeFacets struct {
	values map[uint32]string
	calls  int
}

func (f *fakeFacets) Lookup(_ context.Context, facet string, _ []string, hashes []uint32) (map[uint32]string, error) {
	f.calls++
	out := make(map[uint32]string, len(hashes))
	for _, h := range hashes {
		v, ok := f.values[h]
		if !ok {
			return nil, domain.Configurationf("facet %s: hash %d unknown", facet, h)
		}
		out[h] = v
	}
	return out, nil
}

func songRecords() *fakeRecords {
	return &fakeRecords{records: map[string]map[uint64]map[string]string{
		"Song": {
			1: {"title": "Artichoke Hearts", "body": "A song about <b>artichokes</b>..."},
			2: {"title": "Heart of Palm", "body": "see http://example.com now"},
		},
		"User": {
			7: {"name": "Evan"},
		},
		"Album": {
			4: {"title": "Vegetables"},
		},
	}}
}

func newTestService(d Daemon, r RecordStore, f FacetResolver) *Service {
	return New(d, r, f, testSchema(), testConfig(), nil)
}

var errBoom = fmt.Errorf("boom")
