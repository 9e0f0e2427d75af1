package unisearch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/db/searchd"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Dialer opens transport connections to the daemon. *net.Dialer satisfies it.
type Dialer = searchd.Dialer

type fieldSpec struct {
	name        string
	fieldType   FieldType
	entityTypes []string
}

type clientConfig struct {
	host           string
	port           int
	connectTimeout time.Duration
	ioTimeout      time.Duration
	dialer         Dialer

	index        string
	maxMatches   int
	maxFacets    int
	maxRetries   int
	retrySleep   time.Duration
	queryTimeout time.Duration

	driver    string // "sqlite" or "redis"
	dsn       string
	tables    map[string]Table
	addrs     []string
	username  string
	password  string
	redisDB   int
	keyPrefix string

	entityTypesPath string
	fieldsPath      string
	entityTypes     map[string]int
	fields          []fieldSpec

	subtotals      bool
	ignoreMissing  bool
	defaultPerPage int
	excerpt        ExcerptOptions

	logger     *zap.Logger
	metricsReg prometheus.Registerer
	sleep      searchuc.Sleeper
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		port:           3312,
		connectTimeout: 5 * time.Second,
		ioTimeout:      30 * time.Second,
		maxMatches:     1000,
		maxFacets:      1000,
		maxRetries:     searchuc.DefaultMaxRetries,
		retrySleep:     searchuc.DefaultRetrySleep,
	}
}

// WithSearchd sets the search daemon address.
func WithSearchd(host string, port int) Option {
	return optionFunc(func(c *clientConfig) {
		c.host = host
		c.port = port
	})
}

// WithTimeouts bounds dialing and one request/response exchange.
// Defaults: 5s connect, 30s io.
func WithTimeouts(connect, io time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.connectTimeout = connect
		c.ioTimeout = io
	})
}

// WithDialer replaces the TCP dialer used to reach the daemon.
func WithDialer(d Dialer) Option {
	return optionFunc(func(c *clientConfig) {
		c.dialer = d
	})
}

// WithIndex overrides the name of the unified index. Default: "complete".
func WithIndex(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.index = name
	})
}

// WithMaxMatches sets the daemon's max_matches. Results past it are unreachable.
// Default: 1000.
func WithMaxMatches(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxMatches = n
	})
}

// WithMaxFacets caps the number of distinct values counted per facet.
// Default: 1000.
func WithMaxFacets(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxFacets = n
	})
}

// WithRetry sets how often a request is restarted after a transient failure
// and how long to pause before the last attempt. Defaults: 4 restarts, 3s.
func WithRetry(maxRetries int, sleep time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxRetries = maxRetries
		c.retrySleep = sleep
	})
}

// WithQueryTimeout bounds a whole run, retries and record loading included.
func WithQueryTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryTimeout = d
	})
}

// WithSQLite loads records from an SQLite database. Entity types missing
// from tables map onto a table named after the lowercased type with an
// "id" column.
func WithSQLite(dsn string, tables map[string]Table) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "sqlite"
		c.dsn = dsn
		c.tables = tables
	})
}

// WithRedis loads records from Redis hashes keyed "<keyPrefix><Type>:<id>".
func WithRedis(addr, password, keyPrefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
		c.keyPrefix = keyPrefix
	})
}

// WithRedisAuth sets the Redis ACL user and logical database.
func WithRedisAuth(username string, db int) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.redisDB = db
	})
}

// WithSchemaFiles reads the entity type registry and the field types from
// the YAML files generated with the index.
func WithSchemaFiles(entityTypesPath, fieldsPath string) Option {
	return optionFunc(func(c *clientConfig) {
		c.entityTypesPath = entityTypesPath
		c.fieldsPath = fieldsPath
	})
}

// WithEntityTypes declares the entity type registry in code.
// Ids must be dense from 0 and match the ones the index was built with.
func WithEntityTypes(types map[string]int) Option {
	return optionFunc(func(c *clientConfig) {
		c.entityTypes = types
	})
}

// WithField declares one indexed field in code.
func WithField(name string, ft FieldType, entityTypes ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.fields = append(c.fields, fieldSpec{name: name, fieldType: ft, entityTypes: entityTypes})
	})
}

// WithSubtotals computes per entity type match counts on every run.
func WithSubtotals() Option {
	return optionFunc(func(c *clientConfig) {
		c.subtotals = true
	})
}

// WithIgnoreMissingRecords drops matches the record store cannot find
// instead of failing the run.
func WithIgnoreMissingRecords() Option {
	return optionFunc(func(c *clientConfig) {
		c.ignoreMissing = true
	})
}

// WithDefaultPerPage sets the page size of searches that do not set one.
// Default: 20.
func WithDefaultPerPage(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultPerPage = n
	})
}

// WithExcerpt tunes highlighting.
func WithExcerpt(o ExcerptOptions) Option {
	return optionFunc(func(c *clientConfig) {
		c.excerpt = o
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts, durations,
// retries and facet cache activity) on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// withSleeper replaces the timer used before the last retry.
func withSleeper(s searchuc.Sleeper) Option {
	return optionFunc(func(c *clientConfig) {
		c.sleep = s
	})
}

func (c *clientConfig) excerptConfig() searchuc.ExcerptConfig {
	out := searchuc.DefaultExcerptConfig()
	o := c.excerpt
	if o.BeforeMatch != "" {
		out.BeforeMatch = o.BeforeMatch
	}
	if o.AfterMatch != "" {
		out.AfterMatch = o.AfterMatch
	}
	if o.ChunkSeparator != "" {
		out.ChunkSeparator = o.ChunkSeparator
	}
	if o.Limit > 0 {
		out.Limit = o.Limit
	}
	if o.Around > 0 {
		out.Around = o.Around
	}
	if len(o.Slots) > 0 {
		out.Slots = o.Slots
	}
	return out
}
