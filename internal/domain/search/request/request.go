package request

import (
	"maps"
	"slices"
	"sort"

	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultPage    = 1
	DefaultPerPage = 20
)

// Params are the caller's raw search parameters.
type Params struct {
	Query       string
	Page        int
	PerPage     int
	SortBy      string
	SortMode    mode.Sort
	Weights     map[string]float64
	Filters     map[string]filter.Value
	EntityTypes []string
	Facets      []string
}

// Options is a validated, immutable set of search parameters.
// Checks that need the field set or the entity registry happen when the
// daemon request is built.
type Options struct {
	query       string
	page        int
	perPage     int
	sortBy      string
	sortMode    mode.Sort
	weights     map[string]float64
	filters     map[string]filter.Value
	entityTypes []string
	facets      []string
}

// New validates and normalizes search parameters.
// Defaults: page=1, per_page=20, sort_mode=relevance.
func New(p Params) (Options, error) {
	if len(p.Query) > MaxQueryLength {
		return Options{}, domain.Usagef("query too long (max %d chars)", MaxQueryLength)
	}

	page, perPage := p.Page, p.PerPage
	if page == 0 {
		page = DefaultPage
	}
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		return Options{}, domain.Usagef("page must be positive, got %d", page)
	}
	if perPage < 1 {
		return Options{}, domain.Usagef("per_page must be positive, got %d", perPage)
	}

	sm := p.SortMode
	if sm == "" {
		sm = mode.Relevance
	}
	if !sm.IsValid() {
		return Options{}, domain.Usagef("sort mode %q is invalid", sm)
	}
	if sm == mode.Relevance && p.SortBy != "" {
		return Options{}, domain.Usagef("sort mode 'relevance' is not valid with a sort_by field")
	}
	if sm.NeedsField() && p.SortBy == "" {
		return Options{}, domain.Usagef("sort mode %q requires a sort_by field", sm)
	}

	for name, w := range p.Weights {
		if w < 0 {
			return Options{}, domain.Usagef("weight for field %q must not be negative", name)
		}
	}

	types := slices.Clone(p.EntityTypes)
	sort.Strings(types)
	types = slices.Compact(types)

	return Options{
		query:       p.Query,
		page:        page,
		perPage:     perPage,
		sortBy:      p.SortBy,
		sortMode:    sm,
		weights:     maps.Clone(p.Weights),
		filters:     maps.Clone(p.Filters),
		entityTypes: types,
		facets:      slices.Clone(p.Facets),
	}, nil
}

// Query returns the raw query text.
func (o *Options) Query() string { return o.query }

// Page returns the 1-based page number.
func (o *Options) Page() int { return o.page }

// PerPage returns the page size.
func (o *Options) PerPage() int { return o.perPage }

// Offset returns the number of matches skipped before this page.
func (o *Options) Offset() int { return o.perPage * (o.page - 1) }

// SortBy returns the sort attribute or clause.
func (o *Options) SortBy() string { return o.sortBy }

// SortMode returns the sort mode.
func (o *Options) SortMode() mode.Sort { return o.sortMode }

// Weights returns per-field weights; nil when the caller supplied none.
func (o *Options) Weights() map[string]float64 { return o.weights }

// Filters returns field filters keyed by field name.
func (o *Options) Filters() map[string]filter.Value { return o.filters }

// FilterFields returns the filtered field names in stable order.
func (o *Options) FilterFields() []string {
	return slices.Sorted(maps.Keys(o.filters))
}

// EntityTypes returns the requested entity type names, sorted and de-duplicated.
func (o *Options) EntityTypes() []string { return o.entityTypes }

// Facets returns the requested facet fields.
func (o *Options) Facets() []string { return o.facets }
