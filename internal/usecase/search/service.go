package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/docid"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/domain/search/request"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/logger"
)

// Config tunes the search pipeline.
type Config struct {
	Index                string
	MaxMatches           int
	MaxFacets            int
	Subtotals            bool
	IgnoreMissingRecords bool
	QueryTimeout         time.Duration
	Excerpt              ExcerptConfig
}

// Execution is the outcome of one search run.
type Execution struct {
	ID        string
	Parsed    string
	Query     *db.SearchQuery
	Response  *db.SearchResult
	Hits      []result.Hit
	Refs      []result.Ref
	Facets    map[string]map[string]int
	Subtotals map[string]int
	// Total is the number of reachable matches: total found, capped by max matches.
	Total int
}

// Service runs searches against the unified index.
type Service struct {
	daemon    Daemon
	facets    FacetResolver
	schema    Schema
	assembler *Assembler
	cfg       Config
	logger    *zap.Logger
}

// New creates a search service. daemon is expected to carry the retry policy.
func New(
	daemon Daemon, records RecordStore, facets FacetResolver,
	schema Schema, cfg Config, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		daemon:    daemon,
		facets:    facets,
		schema:    schema,
		assembler: NewAssembler(docid.New(schema.Registry), records, cfg.IgnoreMissingRecords, logger),
		cfg:       cfg,
		logger:    logger,
	}
}

// Schema returns the schema the service validates requests against.
func (s *Service) Schema() Schema { return s.schema }

// Run executes opts. With reify, matched records are loaded from the record
// store; otherwise only their references are returned.
func (s *Service) Run(ctx context.Context, opts *request.Options, reify bool) (*Execution, error) {
	exec := &Execution{ID: uuid.NewString()}
	log := logger.FromContext(ctx, s.logger).With(zap.String("search_id", exec.ID))

	parsed, err := query.Parse(opts.Query())
	if err != nil {
		return nil, err
	}
	exec.Parsed = parsed

	q, err := BuildQuery(opts, parsed, s.schema, s.cfg.Index, s.cfg.MaxMatches)
	if err != nil {
		return nil, err
	}
	exec.Query = q

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	log.Info("Searching",
		zap.String("query", opts.Query()),
		zap.String("parsed", q.Query),
		zap.Int("page", opts.Page()),
		zap.Int("per_page", opts.PerPage()),
	)

	res, err := s.daemon.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	exec.Response = res
	exec.Total = min(res.TotalFound, s.cfg.MaxMatches)

	log.Info("Search returned",
		zap.String("warning", res.Warning),
		zap.Int("returned", len(res.Matches)),
		zap.Int("total_found", res.TotalFound),
		zap.Duration("elapsed", res.Elapsed),
	)

	if reify {
		exec.Hits, err = s.assembler.Assemble(ctx, res.Matches, opts.Page(), opts.PerPage())
	} else {
		exec.Refs, err = s.assembler.Refs(res.Matches, opts.Page(), opts.PerPage())
	}
	if err != nil {
		return nil, err
	}

	if facets := opts.Facets(); len(facets) > 0 {
		exec.Facets = make(map[string]map[string]int, len(facets))
		for _, name := range facets {
			counts, err := s.Facet(ctx, q, name)
			if err != nil {
				return nil, err
			}
			exec.Facets[name] = counts
		}
	}

	if s.cfg.Subtotals {
		exec.Subtotals, err = s.Subtotals(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	return exec, nil
}

// ExcerptExecution highlights the hits of a reified execution in place.
func (s *Service) ExcerptExecution(ctx context.Context, exec *Execution) error {
	if exec == nil {
		return domain.ErrNotRun
	}
	hits, err := s.Excerpt(ctx, exec.Hits, exec.Parsed)
	if err != nil {
		return fmt.Errorf("excerpt: %w", err)
	}
	exec.Hits = hits
	return nil
}
