package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
)

// Facet counts matches of q grouped by the values of name. Text fields are
// grouped on their hashed shadow attribute and mapped back to text.
func (s *Service) Facet(ctx context.Context, q *db.SearchQuery, name string) (map[string]int, error) {
	attr, hashed, err := s.schema.Fields.FacetAttribute(name)
	if err != nil {
		return nil, err
	}

	raw, err := s.rawFacets(ctx, q, attr)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(raw))
	if !hashed {
		for v, n := range raw {
			out[strconv.FormatInt(v, 10)] = n
		}
		return out, nil
	}

	hashes := make([]uint32, 0, len(raw))
	for v := range raw {
		hashes = append(hashes, uint32(v)) //nolint:gosec // shadow attributes hold 32-bit checksums
	}
	fd, _ := s.schema.Fields.Lookup(name)
	types := fd.EntityTypes()
	if len(types) == 0 {
		types = s.schema.Registry.Names()
	}
	values, err := s.facets.Lookup(ctx, name, types, hashes)
	if err != nil {
		return nil, err
	}
	for v, n := range raw {
		out[values[uint32(v)]] += n //nolint:gosec // see above
	}
	return out, nil
}

// Subtotals counts matches of q per entity type, ignoring any entity type
// filter. Types without matches count 0.
func (s *Service) Subtotals(ctx context.Context, q *db.SearchQuery) (map[string]int, error) {
	raw, err := s.rawFacets(ctx, q.WithoutFilter(domain.EntityTypeAttribute), domain.EntityTypeAttribute)
	if err != nil {
		return nil, err
	}

	names := s.schema.Registry.Names()
	out := make(map[string]int, len(names))
	for _, name := range names {
		id, _ := s.schema.Registry.ID(name)
		out[name] = raw[int64(id)]
	}
	return out, nil
}

// rawFacets runs the group-by query and returns count per attribute value.
func (s *Service) rawFacets(ctx context.Context, q *db.SearchQuery, attr string) (map[int64]int, error) {
	fq := FacetQuery(q, attr, s.cfg.MaxFacets, s.cfg.MaxMatches)

	res, err := s.daemon.Search(ctx, fq)
	if err != nil {
		if errors.Is(err, domain.ErrDaemon) {
			return nil, fmt.Errorf("%w: facet %s: index seems out of date, rebuild it: %w",
				domain.ErrConfiguration, attr, err)
		}
		return nil, fmt.Errorf("facet %s: %w", attr, err)
	}

	out := make(map[int64]int, len(res.Matches))
	for _, m := range res.Matches {
		value, ok := m.Int(domain.GroupByAttribute)
		if !ok {
			return nil, domain.Responsef("facet %s: match %d has no %s", attr, m.DocID, domain.GroupByAttribute)
		}
		count, ok := m.Int(domain.GroupCountAttribute)
		if !ok {
			return nil, domain.Responsef("facet %s: match %d has no %s", attr, m.DocID, domain.GroupCountAttribute)
		}
		if _, dup := out[value]; dup {
			return nil, domain.Responsef("facet %s: duplicate group %d", attr, value)
		}
		out[value] = int(count)
	}
	return out, nil
}
