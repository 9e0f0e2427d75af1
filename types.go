package unisearch

import (
	"github.com/kailas-cloud/unisearch/internal/domain/field"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
)

// FieldType is the declared type of an indexed field.
type FieldType string

// Field type constants.
const (
	FieldText    FieldType = FieldType(field.Text)
	FieldNumeric FieldType = FieldType(field.Numeric)
	FieldDate    FieldType = FieldType(field.Date)
)

// SortMode controls result ordering.
type SortMode string

// Sort mode constants.
const (
	SortRelevance  SortMode = SortMode(mode.Relevance)
	SortDescending SortMode = SortMode(mode.Descending)
	SortAscending  SortMode = SortMode(mode.Ascending)
	SortTime       SortMode = SortMode(mode.Time)
	SortExtended   SortMode = SortMode(mode.Extended)
)

// Record is a record loaded from the record store. Excerpted results wrap
// the stored record and return highlighted text from Field.
type Record = result.Record

// Filter restricts matches on one field. Build it with In, Between or Text;
// Not turns it into an exclusion.
type Filter = filter.Value

// In matches any of values: numbers, time.Time, or strings holding either.
func In(values ...any) Filter { return filter.In(values...) }

// Between matches the closed range between lo and hi, in either order.
func Between(lo, hi any) Filter { return filter.Between(lo, hi) }

// Text matches a word in a text field.
func Text(s string) Filter { return filter.Text(s) }

// Params are the options of one search.
type Params struct {
	Query    string
	Page     int // 1-based, default 1
	PerPage  int // default 20
	SortBy   string
	SortMode SortMode // default relevance
	// Weights boost text fields; fields left out weigh 1.
	Weights map[string]float64
	Filters map[string]Filter
	// EntityTypes restricts matches to the named types; empty means all.
	EntityTypes []string
	Facets      []string
}

// Result is one assembled search result.
type Result struct {
	Record Record
	// Rank is the 0-based position of the result across all pages.
	Rank int
}

// EntityType returns the result's entity type name.
func (r Result) EntityType() string { return r.Record.EntityType() }

// ID returns the result's native id.
func (r Result) ID() uint64 { return r.Record.ID() }

// Ref identifies a matched record without loading it.
type Ref struct {
	EntityType string
	ID         uint64
	Weight     int
	Rank       int
}

// Word holds per-keyword statistics reported by the daemon.
type Word struct {
	Word string
	Docs int
	Hits int
}

// Table maps an entity type onto an SQL table.
type Table struct {
	Name     string
	IDColumn string
}

// ExcerptOptions tunes highlighting. Zero fields keep their defaults.
type ExcerptOptions struct {
	BeforeMatch    string
	AfterMatch     string
	ChunkSeparator string
	Limit          int
	Around         int
	// Slots list candidate field names; the first field a record has in
	// each slot is highlighted.
	Slots [][]string
}
