package chi

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/field"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/unisearch/internal/domain/search/request"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

// Query parameter prefixes for per-field options.
const (
	weightPrefix = "weight."
	filterPrefix = "filter."
	rangeSep     = ".."
	excludeMark  = "!"
)

var plainParams = map[string]struct{}{
	"q": {}, "page": {}, "per_page": {}, "sort_by": {}, "sort_mode": {},
	"types": {}, "facets": {}, "excerpt": {}, "raw": {},
}

type searchQuery struct {
	opts    request.Options
	raw     bool
	excerpt bool
}

// parseSearchQuery turns GET /search parameters into validated options.
//
//	filter.<field>=v        one value
//	filter.<field>=a,b,c    any of the values
//	filter.<field>=lo..hi   closed range
//	filter.<field>=!...     exclusion of any of the above
//
// Filters on text fields match words and take the value as is.
func parseSearchQuery(v url.Values, schema searchuc.Schema, defaultPerPage int) (searchQuery, error) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := request.Params{
		Query:    v.Get("q"),
		SortBy:   v.Get("sort_by"),
		SortMode: mode.Sort(v.Get("sort_mode")),
	}
	var out searchQuery
	var err error

	for _, k := range keys {
		if _, ok := plainParams[k]; ok {
			continue
		}
		switch {
		case strings.HasPrefix(k, weightPrefix):
			name := strings.TrimPrefix(k, weightPrefix)
			w, perr := strconv.ParseFloat(v.Get(k), 64)
			if perr != nil {
				return out, domain.Usagef("weight for %q must be a number, got %q", name, v.Get(k))
			}
			if p.Weights == nil {
				p.Weights = make(map[string]float64)
			}
			p.Weights[name] = w
		case strings.HasPrefix(k, filterPrefix):
			name := strings.TrimPrefix(k, filterPrefix)
			if p.Filters == nil {
				p.Filters = make(map[string]filter.Value)
			}
			p.Filters[name] = parseFilter(v.Get(k), schema.Fields.TypeOf(name))
		default:
			return out, domain.Usagef("invalid option key %q", k)
		}
	}

	if p.Page, err = intParam(v, "page"); err != nil {
		return out, err
	}
	if p.PerPage, err = intParam(v, "per_page"); err != nil {
		return out, err
	}
	if p.PerPage == 0 {
		p.PerPage = defaultPerPage
	}
	p.EntityTypes = listParam(v, "types")
	p.Facets = listParam(v, "facets")

	if out.raw, err = boolParam(v, "raw"); err != nil {
		return out, err
	}
	if out.excerpt, err = boolParam(v, "excerpt"); err != nil {
		return out, err
	}
	if out.raw && out.excerpt {
		return out, domain.Usagef("excerpt needs the records, it cannot be combined with raw")
	}

	out.opts, err = request.New(p)
	return out, err
}

func parseFilter(s string, ft field.Type) filter.Value {
	exclude := strings.HasPrefix(s, excludeMark)
	s = strings.TrimPrefix(s, excludeMark)

	var f filter.Value
	switch {
	case ft == field.Text:
		f = filter.Text(s)
	case strings.Contains(s, rangeSep):
		lo, hi, _ := strings.Cut(s, rangeSep)
		f = filter.Between(lo, hi)
	default:
		parts := strings.Split(s, ",")
		values := make([]any, len(parts))
		for i, part := range parts {
			values[i] = strings.TrimSpace(part)
		}
		f = filter.In(values...)
	}
	if exclude {
		f = f.Not()
	}
	return f
}

func intParam(v url.Values, name string) (int, error) {
	s := v.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.Usagef("%s must be an integer, got %q", name, s)
	}
	return n, nil
}

func boolParam(v url.Values, name string) (bool, error) {
	s := v.Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, domain.Usagef("%s must be a boolean, got %q", name, s)
	}
	return b, nil
}

func listParam(v url.Values, name string) []string {
	var out []string
	for _, raw := range v[name] {
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
