package unisearch

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/search/request"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

// Search is one query with its options. Run executes it; the accessors read
// the outcome of the latest run and return ErrNotRun before the first one.
// A Search is not safe for concurrent use.
type Search struct {
	client *Client
	opts   request.Options

	exec      *searchuc.Execution
	reified   bool
	excerpted bool
}

// Run executes the search and loads the matched records.
func (s *Search) Run(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("search.run", start, err) }()

	return s.run(ctx, true)
}

// RunRaw executes the search without touching the record store.
// Read the outcome with Refs.
func (s *Search) RunRaw(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("search.run_raw", start, err) }()

	return s.run(ctx, false)
}

// Excerpt runs the search if it has not loaded records yet, then replaces
// the title and body fields of each result with highlighted fragments.
func (s *Search) Excerpt(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("search.excerpt", start, err) }()

	if s.exec == nil || !s.reified {
		if err := s.run(ctx, true); err != nil {
			return err
		}
	}
	if s.excerpted {
		return nil
	}
	if err := s.client.svc.ExcerptExecution(ctx, s.exec); err != nil {
		return fmt.Errorf("excerpt: %w", err)
	}
	s.excerpted = true
	return nil
}

func (s *Search) run(ctx context.Context, reify bool) error {
	if reify && !s.client.hasRecords {
		return fmt.Errorf("run: %w", domain.Configurationf(
			"loading records requires a record store (use WithSQLite or WithRedis, or RunRaw)"))
	}
	exec, err := s.client.svc.Run(ctx, &s.opts, reify)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	s.exec, s.reified, s.excerpted = exec, reify, false
	return nil
}

func (s *Search) executed() (*searchuc.Execution, error) {
	if s.exec == nil {
		return nil, domain.ErrNotRun
	}
	return s.exec, nil
}

// ID returns the id of the latest run, as logged.
func (s *Search) ID() (string, error) {
	exec, err := s.executed()
	if err != nil {
		return "", err
	}
	return exec.ID, nil
}

// Query returns the raw query text.
func (s *Search) Query() string { return s.opts.Query() }

// ParsedQuery returns the query as sent to the daemon.
func (s *Search) ParsedQuery() (string, error) {
	exec, err := s.executed()
	if err != nil {
		return "", err
	}
	return exec.Parsed, nil
}

// Results returns the current page of records in rank order.
func (s *Search) Results() ([]Result, error) {
	exec, err := s.executed()
	if err != nil {
		return nil, err
	}
	if !s.reified {
		return nil, domain.Usagef("search ran without loading records, use Refs")
	}
	out := make([]Result, len(exec.Hits))
	for i, h := range exec.Hits {
		out[i] = Result{Record: h.Record(), Rank: h.Rank()}
	}
	return out, nil
}

// Refs returns the current page of matches of a raw run, in rank order.
func (s *Search) Refs() ([]Ref, error) {
	exec, err := s.executed()
	if err != nil {
		return nil, err
	}
	if s.reified {
		return nil, domain.Usagef("search loaded records, use Results")
	}
	out := make([]Ref, len(exec.Refs))
	for i, r := range exec.Refs {
		out[i] = Ref{EntityType: r.EntityType, ID: r.ID, Weight: r.Weight, Rank: r.Rank}
	}
	return out, nil
}

// TotalEntries returns the number of reachable matches: the daemon's total
// capped by max matches.
func (s *Search) TotalEntries() (int, error) {
	exec, err := s.executed()
	if err != nil {
		return 0, err
	}
	return exec.Total, nil
}

// Subtotals returns match counts per entity type. Every registered type is
// present; the counts add up to TotalEntries.
func (s *Search) Subtotals() (map[string]int, error) {
	exec, err := s.executed()
	if err != nil {
		return nil, err
	}
	if exec.Subtotals == nil {
		return nil, domain.Usagef("subtotals are disabled (use WithSubtotals)")
	}
	return maps.Clone(exec.Subtotals), nil
}

// Facets returns value → match count for a requested facet.
func (s *Search) Facets(name string) (map[string]int, error) {
	exec, err := s.executed()
	if err != nil {
		return nil, err
	}
	counts, ok := exec.Facets[name]
	if !ok {
		return nil, domain.Usagef("facet %q was not requested", name)
	}
	return maps.Clone(counts), nil
}

// CurrentPage returns the 1-based page number.
func (s *Search) CurrentPage() int { return s.opts.Page() }

// PerPage returns the page size.
func (s *Search) PerPage() int { return s.opts.PerPage() }

// Offset returns the number of matches before the current page.
func (s *Search) Offset() int { return s.opts.Offset() }

// PageCount returns the number of pages holding reachable matches.
func (s *Search) PageCount() (int, error) {
	total, err := s.TotalEntries()
	if err != nil {
		return 0, err
	}
	per := s.opts.PerPage()
	return (total + per - 1) / per, nil
}

// NextPage returns the following page number, or 0 on the last page.
func (s *Search) NextPage() (int, error) {
	pages, err := s.PageCount()
	if err != nil {
		return 0, err
	}
	if page := s.opts.Page(); page < pages {
		return page + 1, nil
	}
	return 0, nil
}

// PreviousPage returns the preceding page number, or 0 on the first page.
func (s *Search) PreviousPage() int {
	if page := s.opts.Page(); page > 1 {
		return page - 1
	}
	return 0
}

// ElapsedTime returns the query time reported by the daemon.
func (s *Search) ElapsedTime() (time.Duration, error) {
	exec, err := s.executed()
	if err != nil {
		return 0, err
	}
	return exec.Response.Elapsed, nil
}

// Warning returns the daemon's warning for the latest run, if any.
func (s *Search) Warning() (string, error) {
	exec, err := s.executed()
	if err != nil {
		return "", err
	}
	return exec.Response.Warning, nil
}

// Words returns per-keyword statistics for the latest run.
func (s *Search) Words() ([]Word, error) {
	exec, err := s.executed()
	if err != nil {
		return nil, err
	}
	out := make([]Word, len(exec.Response.Words))
	for i, w := range exec.Response.Words {
		out[i] = Word{Word: w.Word, Docs: w.Docs, Hits: w.Hits}
	}
	return out, nil
}
