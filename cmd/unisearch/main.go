package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/config"
	dbRedis "github.com/kailas-cloud/unisearch/internal/db/redis"
	"github.com/kailas-cloud/unisearch/internal/db/searchd"
	"github.com/kailas-cloud/unisearch/internal/db/sqlite"
	logpkg "github.com/kailas-cloud/unisearch/internal/logger"
	"github.com/kailas-cloud/unisearch/internal/metrics"
	"github.com/kailas-cloud/unisearch/internal/repository/facetcache"
	"github.com/kailas-cloud/unisearch/internal/repository/record"
	chiTransport "github.com/kailas-cloud/unisearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/unisearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
	"github.com/kailas-cloud/unisearch/internal/version"
)

// recordBackend is what the composition root needs from a record store adapter.
type recordBackend interface {
	searchuc.RecordStore
	DistinctValuesWithHash(ctx context.Context, entityType, field string) ([]record.FacetValue, error)
	Ping(ctx context.Context) error
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting unisearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("searchd", fmt.Sprintf("%s:%d", cfg.Searchd.Host, cfg.Searchd.Port)),
		zap.String("index", cfg.Searchd.Index),
		zap.String("records_driver", cfg.Records.Driver),
	)

	registry, fields, err := config.LoadSchema(cfg.Schema.EntityTypesPath, cfg.Schema.FieldsPath)
	if err != nil {
		logger.Fatal("Failed to load schema", zap.Error(err))
	}
	schema := searchuc.Schema{Registry: registry, Fields: fields}
	logger.Info("Schema loaded",
		zap.Strings("entity_types", registry.Names()),
		zap.Int("text_fields", len(fields.TextFields())),
	)

	daemon, err := searchd.New(searchd.Config{
		Host:           cfg.Searchd.Host,
		Port:           cfg.Searchd.Port,
		ConnectTimeout: time.Duration(cfg.Searchd.ConnectTimeout) * time.Second,
		IOTimeout:      time.Duration(cfg.Searchd.IOTimeout) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create searchd client", zap.Error(err))
	}

	ctx := context.Background()
	records, closeRecords, err := openRecords(ctx, cfg.Records)
	if err != nil {
		logger.Fatal("Failed to open record store", zap.Error(err))
	}
	defer closeRecords()
	logger.Info("Connected to record store")

	searchMetrics, err := metrics.NewSearch(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register search metrics", zap.Error(err))
	}
	httpMetrics, err := metrics.NewHTTP(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register HTTP metrics", zap.Error(err))
	}

	// Composition root: retry decorator around the raw daemon client.
	retrying := searchuc.NewRetryingDaemon(daemon, searchuc.RetryPolicy{
		MaxRetries: *cfg.Searchd.MaxRetries,
		Sleep:      time.Duration(cfg.Searchd.RetrySleepMS) * time.Millisecond,
	}, nil, searchMetrics, logger)

	facets := facetcache.New(records, searchMetrics, logger)
	searchSvc := searchuc.New(retrying, records, facets, schema, searchuc.Config{
		Index:                cfg.Searchd.Index,
		MaxMatches:           cfg.Searchd.MaxMatches,
		MaxFacets:            cfg.Searchd.MaxFacets,
		Subtotals:            cfg.Search.Subtotals,
		IgnoreMissingRecords: cfg.Search.IgnoreMissingRecords,
		QueryTimeout:         time.Duration(cfg.Searchd.QueryTimeoutSec) * time.Second,
		Excerpt:              searchuc.ExcerptConfig(cfg.Search.Excerpt),
	}, logger)
	healthSvc := healthuc.New(daemon, records)

	server := chiTransport.NewServer(searchSvc, healthSvc, prometheus.DefaultGatherer, cfg.Search.DefaultPerPage, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEvent(logger))
	r.Use(httpMetrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openRecords opens the configured record store and waits until it answers.
func openRecords(ctx context.Context, cfg config.RecordsConfig) (recordBackend, func(), error) {
	readiness := time.Duration(cfg.ReadinessTimeout) * time.Second

	switch cfg.Driver {
	case "sqlite":
		s, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		if err := s.Ping(pingCtx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("sqlite not ready: %w", err)
		}
		tables := make(map[string]record.Table, len(cfg.Tables))
		for name, t := range cfg.Tables {
			tables[name] = record.Table{Name: t.Name, IDColumn: t.IDColumn}
		}
		return record.NewSQL(s, tables), func() { _ = s.Close() }, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, readiness); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("redis not ready: %w", err)
		}
		return record.NewRedis(s, cfg.KeyPrefix), s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown record driver %q", cfg.Driver)
	}
}
