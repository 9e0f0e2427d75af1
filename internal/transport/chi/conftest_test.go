package chi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/field"
	"github.com/kailas-cloud/unisearch/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/unisearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

func mustField(name string, ft field.Type, types ...string) field.Field {
	f, err := field.New(name, ft, types...)
	if err != nil {
		panic(err)
	}
	return f
}

func testSchema() searchuc.Schema {
	return searchuc.Schema{
		Registry: entity.MustNewRegistry(map[string]int{"Album": 0, "Song": 1, "User": 2}),
		Fields: field.MustNewSet(
			mustField("title", field.Text, "Album", "Song"),
			mustField("genre", field.Text, "Album", "Song"),
			mustField("year", field.Numeric, "Album", "Song"),
			mustField("released", field.Date, "Album"),
		),
	}
}

type mockSearch struct {
	runFn     func(opts *request.Options, reify bool) (*searchuc.Execution, error)
	excerptFn func(exec *searchuc.Execution) error
	runs      int
	excerpts  int
	lastOpts  *request.Options
	lastReify bool
}

func (m *mockSearch) Schema() searchuc.Schema { return testSchema() }

func (m *mockSearch) Run(_ context.Context, opts *request.Options, reify bool) (*searchuc.Execution, error) {
	m.runs++
	m.lastOpts, m.lastReify = opts, reify
	if m.runFn != nil {
		return m.runFn(opts, reify)
	}
	return &searchuc.Execution{ID: "s-1"}, nil
}

func (m *mockSearch) ExcerptExecution(_ context.Context, exec *searchuc.Execution) error {
	m.excerpts++
	if m.excerptFn != nil {
		return m.excerptFn(exec)
	}
	return nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func newTestRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

var errBoom = errors.New("boom")
