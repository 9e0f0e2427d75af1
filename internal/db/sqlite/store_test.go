package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/unisearch/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().Exec(`
		CREATE TABLE songs (
			id     INTEGER PRIMARY KEY,
			title  TEXT NOT NULL,
			genre  TEXT,
			rating REAL
		);
		INSERT INTO songs (id, title, genre, rating) VALUES
			(1, 'Artichoke Blues', 'blues', 4.5),
			(2, 'Heart of Palm', 'rock', 3),
			(3, 'Untitled', NULL, NULL),
			(4, 'Second Heart', 'rock', 2.25);
	`)
	require.NoError(t, err)
	return s
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestOpen_MemoryUsesOneConnection(t *testing.T) {
	tests := []struct {
		dsn  string
		want int
	}{
		{":memory:", 1},
		{"file:records?mode=memory&cache=shared", 1},
		{"file:" + t.TempDir() + "/records.db", 0},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			s, err := Open(tt.dsn)
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, tt.want, s.DB().Stats().MaxOpenConnections)
		})
	}
}

func TestSelectByIDs_ConcurrentOnMemory(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SelectByIDs(context.Background(), "songs", "id", []uint64{1, 2})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err, "every connection must see the seeded tables")
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestSelectByIDs(t *testing.T) {
	s := newTestStore(t)

	rows, err := s.SelectByIDs(context.Background(), "songs", "id", []uint64{3, 1, 99})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[string]map[string]string{}
	for _, r := range rows {
		byID[r["id"]] = r
	}
	assert.Equal(t, "Artichoke Blues", byID["1"]["title"])
	assert.Equal(t, "4.5", byID["1"]["rating"])

	_, hasGenre := byID["3"]["genre"]
	assert.False(t, hasGenre, "NULL columns are omitted")
}

func TestSelectByIDs_Empty(t *testing.T) {
	s := newTestStore(t)
	rows, err := s.SelectByIDs(context.Background(), "songs", "id", nil)
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestSelectByIDs_Chunked(t *testing.T) {
	s := newTestStore(t)

	for i := 10; i < 10+maxParams+5; i++ {
		_, err := s.DB().Exec("INSERT INTO songs (id, title) VALUES (?, ?)", i, fmt.Sprintf("t%d", i))
		require.NoError(t, err)
	}
	ids := make([]uint64, 0, maxParams+5)
	for i := 10; i < 10+maxParams+5; i++ {
		ids = append(ids, uint64(i))
	}

	rows, err := s.SelectByIDs(context.Background(), "songs", "id", ids)
	require.NoError(t, err)
	assert.Len(t, rows, maxParams+5)
}

func TestSelectByIDs_InvalidIdentifier(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SelectByIDs(context.Background(), "songs; DROP TABLE songs", "id", []uint64{1})
	require.Error(t, err)

	var dbErr *db.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, db.OpSelect, dbErr.Op)
}

func TestSelectByIDs_NoSuchTable(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SelectByIDs(context.Background(), "albums", "id", []uint64{1})
	require.ErrorIs(t, err, db.ErrNoSuchTable)
}

func TestSelectDistinct(t *testing.T) {
	s := newTestStore(t)

	vals, err := s.SelectDistinct(context.Background(), "songs", "genre")
	require.NoError(t, err)
	sort.Strings(vals)
	assert.Equal(t, []string{"", "blues", "rock"}, vals, "NULL is reported as empty")
}

func TestSelectDistinct_EmptyAndNullCollapse(t *testing.T) {
	s := newTestStore(t)
	_, err := s.DB().Exec("INSERT INTO songs (id, title, genre) VALUES (5, 'Blank', '')")
	require.NoError(t, err)

	vals, err := s.SelectDistinct(context.Background(), "songs", "genre")
	require.NoError(t, err)
	sort.Strings(vals)
	assert.Equal(t, []string{"", "blues", "rock"}, vals)
}

func TestSelectDistinct_InvalidIdentifier(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SelectDistinct(context.Background(), "songs", `genre"`)
	require.Error(t, err)
}
