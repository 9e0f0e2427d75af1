package facetcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/db/sqlite"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/metrics"
	"github.com/kailas-cloud/unisearch/internal/repository/record"
)

// mockSource implements the source consumer interface for tests.
type mockSource struct {
	calls  atomic.Int32
	values map[string][]string // entity type → values
	err    error
}

func (m *mockSource) DistinctValuesWithHash(_ context.Context, entityType, _ string) ([]record.FacetValue, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	out := make([]record.FacetValue, 0, len(m.values[entityType]))
	for _, v := range m.values[entityType] {
		out = append(out, record.FacetValue{Value: v, Hash: record.Hash(v)})
	}
	return out, nil
}

func TestLookup_RebuildsOnMiss(t *testing.T) {
	src := &mockSource{values: map[string][]string{
		"Song":  {"rock", "blues"},
		"Album": {"jazz"},
	}}
	c := New(src, nil, zap.NewNop())

	got, err := c.Lookup(context.Background(), "genre", []string{"Album", "Song"},
		[]uint32{record.Hash("rock"), record.Hash("jazz")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[record.Hash("rock")] != "rock" || got[record.Hash("jazz")] != "jazz" {
		t.Errorf("unexpected values: %v", got)
	}
	if src.calls.Load() != 2 {
		t.Errorf("expected one call per entity type, got %d", src.calls.Load())
	}
	if c.Len("genre") != 3 {
		t.Errorf("expected 3 cached values, got %d", c.Len("genre"))
	}
}

func TestLookup_SecondLookupHitsCache(t *testing.T) {
	src := &mockSource{values: map[string][]string{"Song": {"rock"}}}
	c := New(src, nil, zap.NewNop())
	hashes := []uint32{record.Hash("rock")}

	first, err := c.Lookup(context.Background(), "genre", []string{"Song"}, hashes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Lookup(context.Background(), "genre", []string{"Song"}, hashes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first[hashes[0]] != second[hashes[0]] {
		t.Errorf("lookups disagree: %q vs %q", first[hashes[0]], second[hashes[0]])
	}
	if src.calls.Load() != 1 {
		t.Errorf("expected a single rebuild, got %d source calls", src.calls.Load())
	}
}

func TestLookup_StillMissingIsConfigurationError(t *testing.T) {
	src := &mockSource{values: map[string][]string{"Song": {"rock"}}}
	c := New(src, nil, zap.NewNop())

	_, err := c.Lookup(context.Background(), "genre", []string{"Song"}, []uint32{record.Hash("polka")})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestLookup_CollisionIsResponseError(t *testing.T) {
	// "plumless" and "buckeroo" share a CRC-32 checksum.
	src := &mockSource{values: map[string][]string{"Song": {"plumless", "buckeroo"}}}
	c := New(src, nil, zap.NewNop())

	_, err := c.Lookup(context.Background(), "genre", []string{"Song"}, []uint32{record.Hash("plumless")})
	if !errors.Is(err, domain.ErrResponse) {
		t.Fatalf("expected ErrResponse, got %v", err)
	}
}

func TestLookup_SourceError(t *testing.T) {
	boom := errors.New("boom")
	c := New(&mockSource{err: boom}, nil, zap.NewNop())

	_, err := c.Lookup(context.Background(), "genre", []string{"Song"}, []uint32{1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestLookup_EmptyHashesNeverRebuilds(t *testing.T) {
	src := &mockSource{}
	c := New(src, nil, zap.NewNop())

	got, err := c.Lookup(context.Background(), "genre", []string{"Song"}, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
	if src.calls.Load() != 0 {
		t.Errorf("expected no rebuild, got %d calls", src.calls.Load())
	}
}

func TestInvalidate_ForcesRebuild(t *testing.T) {
	src := &mockSource{values: map[string][]string{"Song": {"rock"}}}
	c := New(src, nil, zap.NewNop())
	hashes := []uint32{record.Hash("rock")}

	if _, err := c.Lookup(context.Background(), "genre", []string{"Song"}, hashes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Invalidate("genre")
	if c.Len("genre") != 0 {
		t.Fatal("expected empty table after Invalidate")
	}
	if _, err := c.Lookup(context.Background(), "genre", []string{"Song"}, hashes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.calls.Load() != 2 {
		t.Errorf("expected 2 rebuilds, got %d", src.calls.Load())
	}
}

func TestLookup_ConcurrentReaders(t *testing.T) {
	src := &mockSource{values: map[string][]string{"Song": {"rock", "blues"}}}
	c := New(src, nil, zap.NewNop())
	hashes := []uint32{record.Hash("rock"), record.Hash("blues")}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Lookup(context.Background(), "genre", []string{"Song"}, hashes)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if got[hashes[1]] != "blues" {
				t.Errorf("unexpected value %q", got[hashes[1]])
			}
		}()
	}
	wg.Wait()
}

func TestLookup_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewSearch(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	src := &mockSource{values: map[string][]string{"Song": {"rock"}}}
	c := New(src, m, zap.NewNop())
	hashes := []uint32{record.Hash("rock")}

	for range 2 {
		if _, err := c.Lookup(context.Background(), "genre", []string{"Song"}, hashes); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if n := testutil.CollectAndCount(reg, "unisearch_facet_cache_total"); n != 2 {
		t.Errorf("expected hit and miss series, got %d", n)
	}
	if n := testutil.CollectAndCount(reg, "unisearch_facet_cache_rebuilds_total"); n != 1 {
		t.Errorf("expected 1 rebuild series, got %d", n)
	}
}

func TestLookup_EmptyValueResolves(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.DB().Exec(`
		CREATE TABLE song (id INTEGER PRIMARY KEY, genre TEXT);
		INSERT INTO song (id, genre) VALUES (1, 'rock'), (2, ''), (3, NULL);
	`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	src := &countingSource{inner: record.NewSQL(store, nil)}
	c := New(src, nil, zap.NewNop())
	hashes := []uint32{record.Hash("rock"), record.Hash("")}

	for i := range 2 {
		got, err := c.Lookup(context.Background(), "genre", []string{"Song"}, hashes)
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if v, ok := got[record.Hash("")]; !ok || v != "" {
			t.Errorf("lookup %d: empty value not resolved: %v", i, got)
		}
		if got[record.Hash("rock")] != "rock" {
			t.Errorf("lookup %d: rock not resolved: %v", i, got)
		}
	}
	if src.calls.Load() != 1 {
		t.Errorf("expected a single rebuild, got %d", src.calls.Load())
	}
}

type countingSource struct {
	inner source
	calls atomic.Int32
}

func (c *countingSource) DistinctValuesWithHash(
	ctx context.Context, entityType, field string,
) ([]record.FacetValue, error) {
	c.calls.Add(1)
	return c.inner.DistinctValuesWithHash(ctx, entityType, field)
}
