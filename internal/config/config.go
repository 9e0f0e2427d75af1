package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the unisearch configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Searchd SearchdConfig `yaml:"searchd"`
	Search  SearchConfig  `yaml:"search"`
	Schema  SchemaConfig  `yaml:"schema"`
	Records RecordsConfig `yaml:"records"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SearchdConfig holds search daemon connection and request settings.
type SearchdConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ConnectTimeout  int    `yaml:"connect_timeout_sec"`
	IOTimeout       int    `yaml:"io_timeout_sec"`
	QueryTimeoutSec int    `yaml:"query_timeout_sec"` // 0 = no deadline
	Index           string `yaml:"index"`
	MaxMatches      int    `yaml:"max_matches"`
	MaxFacets       int    `yaml:"max_facets"`
	MaxRetries      *int   `yaml:"max_retries"`
	RetrySleepMS    int    `yaml:"retry_sleep_ms"`
}

// SearchConfig holds result assembly settings.
type SearchConfig struct {
	DefaultPerPage       int           `yaml:"default_per_page"`
	Subtotals            bool          `yaml:"subtotals"`
	IgnoreMissingRecords bool          `yaml:"ignore_missing_records"`
	Excerpt              ExcerptConfig `yaml:"excerpt"`
}

// ExcerptConfig holds highlighting settings.
type ExcerptConfig struct {
	BeforeMatch    string     `yaml:"before_match"`
	AfterMatch     string     `yaml:"after_match"`
	ChunkSeparator string     `yaml:"chunk_separator"`
	Limit          int        `yaml:"limit"`
	Around         int        `yaml:"around"`
	Slots          [][]string `yaml:"slots"`
}

// SchemaConfig points at the files generated alongside the index.
type SchemaConfig struct {
	EntityTypesPath string `yaml:"entity_types_path"`
	FieldsPath      string `yaml:"fields_path"`
}

// RecordsConfig selects and configures the record store.
type RecordsConfig struct {
	Driver           string                 `yaml:"driver"` // sqlite, redis (default: sqlite)
	DSN              string                 `yaml:"dsn"`
	Addrs            []string               `yaml:"addrs"`
	Username         string                 `yaml:"username"`
	Password         string                 `yaml:"password"`
	DB               int                    `yaml:"db"`
	KeyPrefix        string                 `yaml:"key_prefix"`
	Tables           map[string]TableConfig `yaml:"tables"`
	ReadinessTimeout int                    `yaml:"readiness_timeout_sec"`
}

// TableConfig maps an entity type onto a table.
type TableConfig struct {
	Name     string `yaml:"name"`
	IDColumn string `yaml:"id_column"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	s := &c.Searchd
	if s.Host == "" {
		s.Host = "localhost"
	}
	if s.Port <= 0 {
		s.Port = 3312
	}
	if s.ConnectTimeout <= 0 {
		s.ConnectTimeout = 5
	}
	if s.IOTimeout <= 0 {
		s.IOTimeout = 30
	}
	if s.Index == "" {
		s.Index = "complete"
	}
	if s.MaxMatches <= 0 {
		s.MaxMatches = 1000
	}
	if s.MaxFacets <= 0 {
		s.MaxFacets = 1000
	}
	if s.MaxRetries == nil {
		n := 4
		s.MaxRetries = &n
	}
	if s.RetrySleepMS <= 0 {
		s.RetrySleepMS = 3000
	}

	if c.Search.DefaultPerPage <= 0 {
		c.Search.DefaultPerPage = 20
	}
	e := &c.Search.Excerpt
	if e.BeforeMatch == "" {
		e.BeforeMatch = "<strong>"
	}
	if e.AfterMatch == "" {
		e.AfterMatch = "</strong>"
	}
	if e.ChunkSeparator == "" {
		e.ChunkSeparator = "..."
	}
	if e.Limit <= 0 {
		e.Limit = 200
	}
	if e.Around <= 0 {
		e.Around = 1
	}
	if len(e.Slots) == 0 {
		e.Slots = [][]string{{"title", "name"}, {"body", "description", "content"}}
	}

	if c.Records.Driver == "" {
		c.Records.Driver = "sqlite"
	}
	if c.Records.ReadinessTimeout <= 0 {
		c.Records.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Searchd.Port > 65535 {
		return fmt.Errorf("searchd.port must be between 1 and 65535, got %d", c.Searchd.Port)
	}
	if *c.Searchd.MaxRetries < 0 {
		return fmt.Errorf("searchd.max_retries must not be negative, got %d", *c.Searchd.MaxRetries)
	}
	if c.Schema.EntityTypesPath == "" || c.Schema.FieldsPath == "" {
		return fmt.Errorf("schema.entity_types_path and schema.fields_path are required")
	}
	switch c.Records.Driver {
	case "sqlite":
		if c.Records.DSN == "" {
			return fmt.Errorf("records.dsn is required for the sqlite driver")
		}
	case "redis":
		if len(c.Records.Addrs) == 0 {
			return fmt.Errorf("records.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("records.driver must be \"sqlite\" or \"redis\", got %q", c.Records.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
