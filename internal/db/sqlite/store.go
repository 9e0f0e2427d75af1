// Package sqlite reads records from a relational store through modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/unisearch/internal/db"
)

// Compile-time check: Store implements db.RowStore.
var _ db.RowStore = (*Store)(nil)

// maxParams bounds the number of placeholders per SELECT.
const maxParams = 500

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store runs read-only queries against a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the database at dsn. In-memory databases are limited to one
// connection: every new connection would see its own empty database.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if isMemory(dsn) {
		conn.SetMaxOpenConns(1)
	}
	return &Store{db: conn}, nil
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// NewStore wraps an already opened handle.
func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SelectByIDs returns the rows of table whose idColumn is in ids, one map per row.
// Row order is unspecified; NULL columns are omitted from the map.
func (s *Store) SelectByIDs(ctx context.Context, table, idColumn string, ids []uint64) ([]map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	t, err := quote(table)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	col, err := quote(idColumn)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	var out []map[string]string
	for start := 0; start < len(ids); start += maxParams {
		end := min(start+maxParams, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = int64(id) //nolint:gosec // sqlite integers are signed 64-bit
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		q := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)", t, col, placeholders)

		rows, err := s.query(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// SelectDistinct returns every distinct value of column in table. NULL is
// reported as the empty string.
func (s *Store) SelectDistinct(ctx context.Context, table, column string) ([]string, error) {
	t, err := quote(table)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	col, err := quote(column)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	q := fmt.Sprintf("SELECT DISTINCT COALESCE(%s, '') FROM %s", col, t)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: classify(err)}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: classify(err)}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	var out []map[string]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		row := make(map[string]string, len(cols))
		for i, c := range cols {
			if vals[i].Valid {
				row[c] = vals[i].String
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

func quote(ident string) (string, error) {
	if !identRe.MatchString(ident) {
		return "", fmt.Errorf("invalid identifier %q", ident)
	}
	return `"` + ident + `"`, nil
}

// classify maps driver errors onto db sentinels.
func classify(err error) error {
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %w", db.ErrNoSuchTable, err)
	}
	return err
}
