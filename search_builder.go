package unisearch

import "context"

// SearchBuilder is a fluent builder for searches.
// Errors surface from Build, Do or DoRaw.
type SearchBuilder struct {
	client *Client
	params Params
}

// Query starts a search builder for q. An empty q matches every record.
func (c *Client) Query(q string) *SearchBuilder {
	return &SearchBuilder{client: c, params: Params{Query: q}}
}

// Page sets the 1-based page number.
func (b *SearchBuilder) Page(n int) *SearchBuilder {
	b.params.Page = n
	return b
}

// PerPage sets the page size.
func (b *SearchBuilder) PerPage(n int) *SearchBuilder {
	b.params.PerPage = n
	return b
}

// Where adds a filter on field. A later filter on the same field replaces it.
func (b *SearchBuilder) Where(field string, f Filter) *SearchBuilder {
	if b.params.Filters == nil {
		b.params.Filters = make(map[string]Filter)
	}
	b.params.Filters[field] = f
	return b
}

// WhereNot adds an excluding filter on field.
func (b *SearchBuilder) WhereNot(field string, f Filter) *SearchBuilder {
	return b.Where(field, f.Not())
}

// SortBy orders results by field. SortRelevance is not allowed here.
func (b *SearchBuilder) SortBy(field string, m SortMode) *SearchBuilder {
	b.params.SortBy = field
	b.params.SortMode = m
	return b
}

// Weight boosts a text field.
func (b *SearchBuilder) Weight(field string, w float64) *SearchBuilder {
	if b.params.Weights == nil {
		b.params.Weights = make(map[string]float64)
	}
	b.params.Weights[field] = w
	return b
}

// Types restricts matches to the named entity types.
func (b *SearchBuilder) Types(names ...string) *SearchBuilder {
	b.params.EntityTypes = append(b.params.EntityTypes, names...)
	return b
}

// Facet requests value counts for the named fields.
func (b *SearchBuilder) Facet(fields ...string) *SearchBuilder {
	b.params.Facets = append(b.params.Facets, fields...)
	return b
}

// Build validates the options and returns a Search that has not run yet.
func (b *SearchBuilder) Build() (*Search, error) {
	return b.client.NewSearch(b.params)
}

// Do builds and runs the search, loading records.
func (b *SearchBuilder) Do(ctx context.Context) (*Search, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := s.Run(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DoRaw builds and runs the search without loading records.
func (b *SearchBuilder) DoRaw(ctx context.Context) (*Search, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := s.RunRaw(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
