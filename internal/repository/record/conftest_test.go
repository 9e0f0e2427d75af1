package record

import (
	"context"
)

// mockHashStore implements the hash consumer interface for tests.
type mockHashStore struct {
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	hmgetMultiFn   func(ctx context.Context, keys []string, field string) ([]string, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockHashStore) Ping(_ context.Context) error { return nil }

func (m *mockHashStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockHashStore) HMGetMulti(ctx context.Context, keys []string, field string) ([]string, error) {
	if m.hmgetMultiFn != nil {
		return m.hmgetMultiFn(ctx, keys, field)
	}
	return make([]string, len(keys)), nil
}

func (m *mockHashStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

// mockRowStore implements the row consumer interface for tests.
type mockRowStore struct {
	selectByIDsFn    func(ctx context.Context, table, idColumn string, ids []uint64) ([]map[string]string, error)
	selectDistinctFn func(ctx context.Context, table, column string) ([]string, error)
}

func (m *mockRowStore) Ping(_ context.Context) error { return nil }

func (m *mockRowStore) SelectByIDs(
	ctx context.Context, table, idColumn string, ids []uint64,
) ([]map[string]string, error) {
	if m.selectByIDsFn != nil {
		return m.selectByIDsFn(ctx, table, idColumn, ids)
	}
	return nil, nil
}

func (m *mockRowStore) SelectDistinct(ctx context.Context, table, column string) ([]string, error) {
	if m.selectDistinctFn != nil {
		return m.selectDistinctFn(ctx, table, column)
	}
	return nil, nil
}
