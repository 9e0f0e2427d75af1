package db

import (
	"slices"
	"time"

	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
)

// SearchQuery is the wire-ready input for one daemon query.
type SearchQuery struct {
	Index      string
	Query      string
	Offset     int
	Limit      int
	MaxMatches int
	MatchMode  mode.Match
	SortMode   mode.Sort
	SortBy     string
	// Weights is dense and positional: one entry per text field in name order.
	Weights []int
	Filters []filter.Filter

	// Group-by aggregation; GroupBy is empty for plain searches.
	GroupFunc mode.Group
	GroupBy   string
	GroupSort string
	Cutoff    int
}

// Clone returns a deep copy that can be modified without touching q.
func (q *SearchQuery) Clone() *SearchQuery {
	c := *q
	c.Weights = slices.Clone(q.Weights)
	c.Filters = slices.Clone(q.Filters)
	return &c
}

// WithoutFilter returns a clone with every filter on attribute removed.
func (q *SearchQuery) WithoutFilter(attribute string) *SearchQuery {
	c := q.Clone()
	c.Filters = slices.DeleteFunc(c.Filters, func(f filter.Filter) bool {
		return f.Attribute() == attribute
	})
	return c
}

// Attribute type codes reported by the daemon.
const (
	AttrInteger   uint32 = 1
	AttrTimestamp uint32 = 2
	AttrOrdinal   uint32 = 3
	AttrBool      uint32 = 4
	AttrFloat     uint32 = 5
	AttrBigint    uint32 = 6
	AttrMulti     uint32 = 0x40000000
)

// Attribute describes one attribute column of a result set.
type Attribute struct {
	Name string
	Type uint32
}

// Match is a single document hit. Position is its 0-based rank in the
// daemon's reply; attribute values are int64, float32 or []int64.
type Match struct {
	DocID    uint64
	Weight   int
	Position int
	Attrs    map[string]any
}

// Int returns an integer attribute value.
func (m Match) Int(name string) (int64, bool) {
	v, ok := m.Attrs[name].(int64)
	return v, ok
}

// SearchResult is the decoded daemon reply for one query.
type SearchResult struct {
	Warning    string
	Fields     []string
	Attributes []Attribute
	Matches    []Match
	Total      int
	TotalFound int
	Elapsed    time.Duration
	Words      []result.Word
}

// ExcerptQuery asks for highlighted fragments of Docs matching Words.
type ExcerptQuery struct {
	Index          string
	Words          string
	Docs           []string
	BeforeMatch    string
	AfterMatch     string
	ChunkSeparator string
	Limit          int
	Around         int
}
