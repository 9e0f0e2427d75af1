package unisearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/unisearch/internal/config"
	dbRedis "github.com/kailas-cloud/unisearch/internal/db/redis"
	"github.com/kailas-cloud/unisearch/internal/db/searchd"
	"github.com/kailas-cloud/unisearch/internal/db/sqlite"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/field"
	"github.com/kailas-cloud/unisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/unisearch/internal/domain/search/request"
	"github.com/kailas-cloud/unisearch/internal/metrics"
	"github.com/kailas-cloud/unisearch/internal/repository/facetcache"
	"github.com/kailas-cloud/unisearch/internal/repository/record"
	healthuc "github.com/kailas-cloud/unisearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for fakes in tests.
type searchUseCase interface {
	Run(ctx context.Context, opts *request.Options, reify bool) (*searchuc.Execution, error)
	ExcerptExecution(ctx context.Context, exec *searchuc.Execution) error
}

type facetInvalidator interface {
	Invalidate(facet string)
}

// recordBackend is a record store adapter: batched fetch, facet rebuild source, health.
type recordBackend interface {
	searchuc.RecordStore
	DistinctValuesWithHash(ctx context.Context, entityType, field string) ([]record.FacetValue, error)
	Ping(ctx context.Context) error
}

// Client is the unisearch entry point. It is safe for concurrent use;
// every Search it creates is not.
type Client struct {
	svc        searchUseCase
	healthSvc  healthUseCase
	facets     facetInvalidator
	hasRecords bool
	perPage    int
	closers    []func()
	obs        *observer
}

// New creates a Client. It connects to the record store, if one is
// configured, and waits for it to become ready. The daemon is contacted
// per query; New does not reach it.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.host == "" {
		return nil, errors.New("unisearch: search daemon address required (use WithSearchd)")
	}

	schema, err := loadSchema(cfg)
	if err != nil {
		return nil, fmt.Errorf("unisearch: %w", err)
	}

	daemon, err := searchd.New(searchd.Config{
		Host:           cfg.host,
		Port:           cfg.port,
		ConnectTimeout: cfg.connectTimeout,
		IOTimeout:      cfg.ioTimeout,
		Dialer:         cfg.dialer,
	})
	if err != nil {
		return nil, fmt.Errorf("unisearch: create daemon client: %w", err)
	}

	records, closer, err := createRecordStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m, err := metrics.NewSearch(cfg.metricsReg)
	if err != nil {
		closer()
		return nil, fmt.Errorf("unisearch: %w", err)
	}

	c := wireClient(cfg, schema, daemon, records, m)
	c.closers = append(c.closers, closer)
	return c, nil
}

func loadSchema(cfg *clientConfig) (searchuc.Schema, error) {
	if cfg.entityTypesPath != "" {
		registry, fields, err := config.LoadSchema(cfg.entityTypesPath, cfg.fieldsPath)
		if err != nil {
			return searchuc.Schema{}, err
		}
		return searchuc.Schema{Registry: registry, Fields: fields}, nil
	}

	if len(cfg.entityTypes) == 0 {
		return searchuc.Schema{}, domain.Configurationf(
			"entity types required (use WithSchemaFiles or WithEntityTypes)")
	}
	registry, err := entity.NewRegistry(cfg.entityTypes)
	if err != nil {
		return searchuc.Schema{}, err
	}
	fields := make([]field.Field, 0, len(cfg.fields))
	for _, fs := range cfg.fields {
		f, err := field.New(fs.name, field.Type(fs.fieldType), fs.entityTypes...)
		if err != nil {
			return searchuc.Schema{}, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		fields = append(fields, f)
	}
	set, err := field.NewSet(fields)
	if err != nil {
		return searchuc.Schema{}, err
	}
	return searchuc.Schema{Registry: registry, Fields: set}, nil
}

// createRecordStore opens the configured backend. A nil backend means
// results can only be fetched as references.
func createRecordStore(ctx context.Context, cfg *clientConfig) (recordBackend, func(), error) {
	switch cfg.driver {
	case "":
		return nil, func() {}, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("unisearch: open sqlite: %w", err)
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("unisearch: record store not ready: %w", err)
		}
		tables := make(map[string]record.Table, len(cfg.tables))
		for name, t := range cfg.tables {
			tables[name] = record.Table{Name: t.Name, IDColumn: t.IDColumn}
		}
		return record.NewSQL(s, tables), func() { _ = s.Close() }, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
			DB:       cfg.redisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("unisearch: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("unisearch: record store not ready: %w", err)
		}
		return record.NewRedis(s, cfg.keyPrefix), s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unisearch: unknown record driver %q", cfg.driver)
	}
}

// daemonBackend is the raw daemon client: the retry decorator's inner
// daemon plus the handshake used by health checks.
type daemonBackend interface {
	searchuc.Daemon
	Ping(ctx context.Context) error
}

func wireClient(
	cfg *clientConfig, schema searchuc.Schema,
	daemon daemonBackend, records recordBackend, m *metrics.Search,
) *Client {
	index := cfg.index
	if index == "" {
		index = domain.UnifiedIndexName
	}

	retrying := searchuc.NewRetryingDaemon(daemon, searchuc.RetryPolicy{
		MaxRetries: cfg.maxRetries,
		Sleep:      cfg.retrySleep,
	}, cfg.sleep, m, cfg.logger)

	// Interfaces holding typed nil pointers are not nil; keep them unset.
	var (
		store       searchuc.RecordStore
		recordsPing healthuc.Pinger
		facets      searchuc.FacetResolver
		cache       *facetcache.Cache
	)
	if records != nil {
		store, recordsPing = records, records
		cache = facetcache.New(records, m, cfg.logger)
		facets = cache
	} else {
		facets = noFacetSource{}
	}

	svc := searchuc.New(retrying, store, facets, schema, searchuc.Config{
		Index:                index,
		MaxMatches:           cfg.maxMatches,
		MaxFacets:            cfg.maxFacets,
		Subtotals:            cfg.subtotals,
		IgnoreMissingRecords: cfg.ignoreMissing,
		QueryTimeout:         cfg.queryTimeout,
		Excerpt:              cfg.excerptConfig(),
	}, cfg.logger)

	c := &Client{
		svc:        svc,
		healthSvc:  healthuc.New(daemon, recordsPing),
		hasRecords: records != nil,
		perPage:    cfg.defaultPerPage,
		obs:        newObserver(cfg.logger, m),
	}
	if cache != nil {
		c.facets = cache
	}
	return c
}

// Close releases all resources.
func (c *Client) Close() {
	for _, fn := range c.closers {
		fn()
	}
	c.closers = nil
}

// InvalidateFacet drops the cached text values of a facet. The next lookup
// rebuilds them from the record store. Nothing calls it automatically.
func (c *Client) InvalidateFacet(name string) {
	if c.facets != nil {
		c.facets.Invalidate(name)
	}
}

// NewSearch validates p and returns a Search ready to run.
func (c *Client) NewSearch(p Params) (*Search, error) {
	if p.PerPage == 0 && c.perPage > 0 {
		p.PerPage = c.perPage
	}
	opts, err := request.New(request.Params{
		Query:       p.Query,
		Page:        p.Page,
		PerPage:     p.PerPage,
		SortBy:      p.SortBy,
		SortMode:    mode.Sort(p.SortMode),
		Weights:     p.Weights,
		Filters:     p.Filters,
		EntityTypes: p.EntityTypes,
		Facets:      p.Facets,
	})
	if err != nil {
		return nil, fmt.Errorf("new search: %w", err)
	}
	return &Search{client: c, opts: opts}, nil
}

// noFacetSource serves clients without a record store: text facets need
// the stored values to reverse their hashes.
type noFacetSource struct{}

func (noFacetSource) Lookup(context.Context, string, []string, []uint32) (map[uint32]string, error) {
	return nil, domain.Configurationf("text facets require a record store (use WithSQLite or WithRedis)")
}
