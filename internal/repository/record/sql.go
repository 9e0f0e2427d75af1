package record

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
)

// rowStore is the consumer interface for row-backed records (ISP).
type rowStore interface {
	Ping(ctx context.Context) error
	SelectByIDs(ctx context.Context, table, idColumn string, ids []uint64) ([]map[string]string, error)
	SelectDistinct(ctx context.Context, table, column string) ([]string, error)
}

// Table locates an entity type's rows.
type Table struct {
	Name     string
	IDColumn string
}

// SQLStore reads records stored as table rows.
type SQLStore struct {
	store  rowStore
	tables map[string]Table
}

// NewSQL creates a row-backed record store. Entity types missing from tables
// default to the lower-cased type name with an "id" column.
func NewSQL(s rowStore, tables map[string]Table) *SQLStore {
	t := make(map[string]Table, len(tables))
	for k, v := range tables {
		t[k] = v
	}
	return &SQLStore{store: s, tables: t}
}

// Ping checks the backend.
func (r *SQLStore) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Fetch loads the records of one entity type. Missing records are absent from the result.
func (r *SQLStore) Fetch(ctx context.Context, entityType string, ids []uint64) ([]result.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	t := r.table(entityType)

	rows, err := r.store.SelectByIDs(ctx, t.Name, t.IDColumn, ids)
	if err != nil {
		return nil, r.wrap(entityType, err)
	}

	out := make([]result.Record, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.ParseUint(row[t.IDColumn], 10, 64)
		if err != nil {
			return nil, domain.Configurationf(
				"table %s: id column %q is not an unsigned integer: %q", t.Name, t.IDColumn, row[t.IDColumn])
		}
		out = append(out, result.New(entityType, id, row))
	}
	return out, nil
}

// DistinctValuesWithHash lists every distinct non-NULL value of field in the entity type's table.
func (r *SQLStore) DistinctValuesWithHash(ctx context.Context, entityType, field string) ([]FacetValue, error) {
	t := r.table(entityType)
	values, err := r.store.SelectDistinct(ctx, t.Name, field)
	if err != nil {
		return nil, r.wrap(entityType, err)
	}
	return facetValues(values), nil
}

func (r *SQLStore) table(entityType string) Table {
	t, ok := r.tables[entityType]
	if !ok {
		t = Table{Name: strings.ToLower(entityType)}
	}
	if t.IDColumn == "" {
		t.IDColumn = "id"
	}
	return t
}

func (r *SQLStore) wrap(entityType string, err error) error {
	if errors.Is(err, db.ErrNoSuchTable) {
		return fmt.Errorf("%w: entity type %s: %w", domain.ErrConfiguration, entityType, err)
	}
	return fmt.Errorf("select %s records: %w", entityType, err)
}
