package search

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/field"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/unisearch/internal/domain/search/request"
)

// Schema is the generated configuration the index was built from.
type Schema struct {
	Registry *entity.Registry
	Fields   *field.Set
}

// BuildQuery turns validated options and a parsed query into a daemon request.
// Text filters are appended to the query as field-scoped clauses.
func BuildQuery(
	opts *request.Options, parsed string, schema Schema, index string, maxMatches int,
) (*db.SearchQuery, error) {
	offset, limit := opts.Offset(), opts.PerPage()
	q := &db.SearchQuery{
		Index:      index,
		Query:      parsed,
		Offset:     offset,
		Limit:      limit,
		MaxMatches: min(offset+limit, maxMatches),
		MatchMode:  mode.MatchExtended,
		SortMode:   opts.SortMode(),
		SortBy:     opts.SortBy(),
	}

	weights, err := weightVector(opts.Weights(), schema.Fields)
	if err != nil {
		return nil, err
	}
	q.Weights = weights

	// Facets run after the main query; reject bad names before any of it is sent.
	for _, name := range opts.Facets() {
		if _, _, err := schema.Fields.FacetAttribute(name); err != nil {
			return nil, err
		}
	}

	if types := opts.EntityTypes(); len(types) > 0 {
		ids, err := schema.Registry.IDs(types)
		if err != nil {
			return nil, err
		}
		vals := make([]int64, len(ids))
		for i, id := range ids {
			vals[i] = int64(id)
		}
		f, err := filter.NewValues(domain.EntityTypeAttribute, vals, false)
		if err != nil {
			return nil, domain.Usagef("%v", err)
		}
		q.Filters = append(q.Filters, f)
	}

	var folded strings.Builder
	filters := opts.Filters()
	for _, name := range opts.FilterFields() {
		fd, ok := schema.Fields.Lookup(name)
		if !ok {
			return nil, domain.Usagef("field %q is invalid", name)
		}
		v := filters[name]
		if v.Kind() == filter.ValueText {
			folded.WriteString(" @" + name + " ")
			if v.Excluded() {
				folded.WriteString("-")
			}
			folded.WriteString(v.TextValue())
			continue
		}
		f, err := attributeFilter(fd, v)
		if err != nil {
			return nil, err
		}
		q.Filters = append(q.Filters, f)
	}
	if folded.Len() > 0 {
		q.Query = parsed + folded.String()
	}

	return q, nil
}

// FacetQuery derives a group-by request over attr from q. The page window is
// widened to fetch every group up to maxFacets.
func FacetQuery(q *db.SearchQuery, attr string, maxFacets, maxMatches int) *db.SearchQuery {
	f := q.Clone()
	f.GroupBy = attr
	f.GroupFunc = mode.GroupAttribute
	f.GroupSort = "@count desc"
	f.Offset = 0
	f.Limit = maxFacets
	f.MaxMatches = min(maxFacets, maxMatches)
	return f
}

// weightVector lays weights out densely over the text fields in name order.
// Unlisted fields weigh 1. The daemon takes integer weights; fractions are
// truncated, so 1.5 is sent as 1.
func weightVector(weights map[string]float64, fields *field.Set) ([]int, error) {
	if len(weights) == 0 {
		return nil, nil
	}
	for name := range weights {
		if fields.TypeOf(name) != field.Text {
			return nil, domain.Usagef("weight for %q: not a text field", name)
		}
	}
	text := fields.TextFields()
	out := make([]int, len(text))
	for i, name := range text {
		w, ok := weights[name]
		if !ok {
			w = 1.0
		}
		out[i] = int(w)
	}
	return out, nil
}

func attributeFilter(fd field.Field, v filter.Value) (filter.Filter, error) {
	name := fd.Name()
	if fd.FieldType() == field.Text {
		return filter.Filter{}, domain.Usagef(
			"filter value for text field %q must be text", name)
	}

	switch v.Kind() {
	case filter.ValueSet:
		scalars := v.Scalars()
		if len(scalars) == 0 {
			return filter.Filter{}, invalidValue(name, scalars)
		}
		vals := make([]int64, 0, len(scalars))
		for _, s := range scalars {
			n, fl, isFloat, err := coerce(fd.FieldType(), s)
			if err != nil {
				return filter.Filter{}, invalidValue(name, s)
			}
			if isFloat {
				if fl != math.Trunc(fl) {
					// value sets are integral on the wire
					return filter.Filter{}, invalidValue(name, s)
				}
				n = int64(fl)
			}
			vals = append(vals, n)
		}
		return filter.NewValues(name, vals, v.Excluded())

	case filter.ValueRange:
		lo, hi := v.Bounds()
		nlo, flo, loFloat, err := coerce(fd.FieldType(), lo)
		if err != nil {
			return filter.Filter{}, invalidValue(name, lo)
		}
		nhi, fhi, hiFloat, err := coerce(fd.FieldType(), hi)
		if err != nil {
			return filter.Filter{}, invalidValue(name, hi)
		}
		if loFloat || hiFloat {
			if !loFloat {
				flo = float64(nlo)
			}
			if !hiFloat {
				fhi = float64(nhi)
			}
			return filter.NewFloatRange(name, flo, fhi, v.Excluded())
		}
		return filter.NewRange(name, nlo, nhi, v.Excluded())
	}
	return filter.Filter{}, invalidValue(name, nil)
}

// coerce converts a caller value for a field of type ft. Dates become unix seconds.
func coerce(ft field.Type, v any) (n int64, f float64, isFloat bool, err error) {
	switch x := v.(type) {
	case int:
		return int64(x), 0, false, nil
	case int8:
		return int64(x), 0, false, nil
	case int16:
		return int64(x), 0, false, nil
	case int32:
		return int64(x), 0, false, nil
	case int64:
		return x, 0, false, nil
	case uint:
		return uintToInt(uint64(x))
	case uint8:
		return int64(x), 0, false, nil
	case uint16:
		return int64(x), 0, false, nil
	case uint32:
		return int64(x), 0, false, nil
	case uint64:
		return uintToInt(x)
	case float32:
		return 0, float64(x), true, nil
	case float64:
		return 0, x, true, nil
	case bool:
		if x {
			return 1, 0, false, nil
		}
		return 0, 0, false, nil
	case time.Time:
		return x.Unix(), 0, false, nil
	case string:
		s := strings.TrimSpace(x)
		if ft == field.Date {
			if t, ok := filter.ParseDate(s); ok {
				return t.Unix(), 0, false, nil
			}
		}
		if i, perr := strconv.ParseInt(s, 10, 64); perr == nil {
			return i, 0, false, nil
		}
		if fl, perr := strconv.ParseFloat(s, 64); perr == nil && !math.IsNaN(fl) && !math.IsInf(fl, 0) {
			return 0, fl, true, nil
		}
	}
	return 0, 0, false, errNotCoercible
}

var errNotCoercible = domain.Usagef("value is not coercible")

func uintToInt(u uint64) (int64, float64, bool, error) {
	if u > math.MaxInt64 {
		return 0, 0, false, errNotCoercible
	}
	return int64(u), 0, false, nil
}

func invalidValue(name string, v any) error {
	return domain.Usagef("filter value %v for field %q is invalid", v, name)
}
