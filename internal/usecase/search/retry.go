package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/metrics"
)

// Retry defaults.
const (
	DefaultMaxRetries = 4
	DefaultRetrySleep = 3 * time.Second
)

// RetryPolicy restarts a request after transient failures. There is no
// backoff: the only pause comes right before the last permitted attempt.
type RetryPolicy struct {
	MaxRetries int
	Sleep      time.Duration
}

// RetryError is returned once a request keeps failing after MaxRetries restarts.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("query failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// RetryingDaemon decorates a Daemon with the retry policy, metrics and logging.
type RetryingDaemon struct {
	inner   Daemon
	policy  RetryPolicy
	sleep   Sleeper
	metrics *metrics.Search
	logger  *zap.Logger
}

// NewRetryingDaemon wraps inner. A nil sleep waits on a timer; m may be nil.
func NewRetryingDaemon(
	inner Daemon, policy RetryPolicy, sleep Sleeper,
	m *metrics.Search, logger *zap.Logger,
) *RetryingDaemon {
	if sleep == nil {
		sleep = sleepContext
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingDaemon{inner: inner, policy: policy, sleep: sleep, metrics: m, logger: logger}
}

// Search runs q, restarting it on transient failures.
func (r *RetryingDaemon) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	return withRetry(ctx, r, db.OpSearch, func(ctx context.Context) (*db.SearchResult, error) {
		return r.inner.Search(ctx, q)
	})
}

// Excerpt builds excerpts, restarting on transient failures.
func (r *RetryingDaemon) Excerpt(ctx context.Context, q *db.ExcerptQuery) ([]string, error) {
	return withRetry(ctx, r, db.OpExcerpt, func(ctx context.Context) ([]string, error) {
		return r.inner.Excerpt(ctx, q)
	})
}

func withRetry[T any](
	ctx context.Context, r *RetryingDaemon, op string, fn func(context.Context) (T, error),
) (T, error) {
	start := time.Now()
	tries := 0
	for {
		v, err := fn(ctx)
		if err == nil {
			r.metrics.ObserveOperation(op, start, nil)
			return v, nil
		}

		var zero T
		if !domain.KindOf(err).Retryable() {
			r.metrics.ObserveOperation(op, start, err)
			return zero, err
		}

		tries++
		if tries > r.policy.MaxRetries {
			r.logger.Error("Query failed",
				zap.String("operation", op),
				zap.Int("attempts", tries),
				zap.Error(err),
			)
			err = &RetryError{Attempts: tries, Err: err}
			r.metrics.ObserveOperation(op, start, err)
			return zero, err
		}

		r.metrics.IncRetry(op)
		r.logger.Warn("Restarting query",
			zap.String("operation", op),
			zap.Int("attempts", tries),
			zap.Error(err),
		)
		if tries == r.policy.MaxRetries {
			r.logger.Warn("Sleeping before final attempt", zap.Duration("sleep", r.policy.Sleep))
			if serr := r.sleep(ctx, r.policy.Sleep); serr != nil {
				r.metrics.ObserveOperation(op, start, serr)
				return zero, fmt.Errorf("%s: %w", op, serr)
			}
		}
	}
}
