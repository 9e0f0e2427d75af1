package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "unisearch"

// Search holds the search pipeline metrics. A nil *Search records nothing.
type Search struct {
	searches      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	facetCache    *prometheus.CounterVec
	facetRebuilds *prometheus.CounterVec
}

// NewSearch registers search metrics on reg, reusing collectors that are
// already registered. A nil reg disables metrics.
func NewSearch(reg prometheus.Registerer) (*Search, error) {
	if reg == nil {
		return nil, nil
	}
	m := &Search{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total daemon operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Daemon operation duration in seconds, retries included.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searchd_retries_total",
			Help:      "Daemon requests restarted after a transient failure.",
		}, []string{"operation"}),
		facetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facet_cache_total",
			Help:      "Facet reverse-map lookups by result.",
		}, []string{"result"}), // "hit" / "miss"
		facetRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facet_cache_rebuilds_total",
			Help:      "Facet reverse-map rebuilds from the record store.",
		}, []string{"facet"}),
	}
	for _, c := range []**prometheus.CounterVec{&m.searches, &m.retries, &m.facetCache, &m.facetRebuilds} {
		if err := registerOrReuse(reg, c); err != nil {
			return nil, err
		}
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveOperation records one daemon operation.
func (m *Search) ObserveOperation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.searches.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// IncRetry counts one restarted request.
func (m *Search) IncRetry(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}

// FacetLookup counts a facet reverse-map lookup.
func (m *Search) FacetLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.facetCache.WithLabelValues(result).Inc()
}

// FacetRebuild counts a facet reverse-map rebuild.
func (m *Search) FacetRebuild(facet string) {
	if m == nil {
		return
	}
	m.facetRebuilds.WithLabelValues(facet).Inc()
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("register metric: %w", err)
	}
	return nil
}
