package unisearch

import (
	"context"
	"sort"
	"sync"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain/search/request"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/repository/record"
	healthuc "github.com/kailas-cloud/unisearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	runFn     func(ctx context.Context, opts *request.Options, reify bool) (*searchuc.Execution, error)
	excerptFn func(ctx context.Context, exec *searchuc.Execution) error
	runs      int
	excerpts  int
}

func (m *mockSearchUC) Run(ctx context.Context, opts *request.Options, reify bool) (*searchuc.Execution, error) {
	m.runs++
	return m.runFn(ctx, opts, reify)
}

func (m *mockSearchUC) ExcerptExecution(ctx context.Context, exec *searchuc.Execution) error {
	m.excerpts++
	if m.excerptFn == nil {
		return nil
	}
	return m.excerptFn(ctx, exec)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- daemon fake for wiring tests ---

type fakeDaemon struct {
	mu        sync.Mutex
	searchFn  func(q *db.SearchQuery) (*db.SearchResult, error)
	excerptFn func(q *db.ExcerptQuery) ([]string, error)
	pingErr   error
	searches  []*db.SearchQuery
}

func (d *fakeDaemon) Search(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	d.mu.Lock()
	d.searches = append(d.searches, q)
	d.mu.Unlock()
	return d.searchFn(q)
}

func (d *fakeDaemon) Excerpt(_ context.Context, q *db.ExcerptQuery) ([]string, error) {
	return d.excerptFn(q)
}

func (d *fakeDaemon) Ping(context.Context) error { return d.pingErr }

// --- record store fake ---

type fakeRecords struct {
	// entity type → id → fields
	rows    map[string]map[uint64]map[string]string
	pingErr error

	mu       sync.Mutex
	rebuilds int
}

func (r *fakeRecords) Fetch(_ context.Context, entityType string, ids []uint64) ([]result.Record, error) {
	var out []result.Record
	for _, id := range ids {
		if vals, ok := r.rows[entityType][id]; ok {
			out = append(out, result.New(entityType, id, vals))
		}
	}
	return out, nil
}

func (r *fakeRecords) DistinctValuesWithHash(_ context.Context, entityType, field string) ([]record.FacetValue, error) {
	r.mu.Lock()
	r.rebuilds++
	r.mu.Unlock()

	seen := map[string]bool{}
	var out []record.FacetValue
	for _, vals := range r.rows[entityType] {
		if v, ok := vals[field]; ok && !seen[v] {
			seen[v] = true
			out = append(out, record.FacetValue{Value: v, Hash: record.Hash(v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

func (r *fakeRecords) Ping(context.Context) error { return r.pingErr }
