package result

import (
	"maps"
	"sort"
)

// Record is one domain record returned by the record store.
// Field is the capability check used by excerpting: ok is false when the
// record has no such field.
type Record interface {
	EntityType() string
	ID() uint64
	Field(name string) (string, bool)
}

// Fields is a map-backed Record.
type Fields struct {
	entityType string
	id         uint64
	values     map[string]string
}

// New creates a map-backed record. values is copied.
func New(entityType string, id uint64, values map[string]string) Fields {
	return Fields{entityType: entityType, id: id, values: maps.Clone(values)}
}

// EntityType returns the record's entity type name.
func (f Fields) EntityType() string { return f.entityType }

// ID returns the record's native id.
func (f Fields) ID() uint64 { return f.id }

// Field returns a field value.
func (f Fields) Field(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Values returns a copy of all field values.
func (f Fields) Values() map[string]string { return maps.Clone(f.values) }

// Hit is an assembled search result: a record plus its absolute rank across pages.
type Hit struct {
	record Record
	rank   int
}

// NewHit creates a Hit.
func NewHit(r Record, rank int) Hit { return Hit{record: r, rank: rank} }

// Record returns the underlying record, or its excerpted view.
func (h Hit) Record() Record { return h.record }

// Rank returns the 0-based absolute position of the hit in the full result set.
func (h Hit) Rank() int { return h.rank }

// WithRecord returns a copy of the hit holding r.
func (h Hit) WithRecord(r Record) Hit {
	h.record = r
	return h
}

// Excerpted is a read-only view of a record with some fields replaced by
// highlighted fragments. The wrapped record is never modified.
type Excerpted struct {
	Record
	overrides map[string]string
}

// NewExcerpted wraps r. overrides is copied.
func NewExcerpted(r Record, overrides map[string]string) Excerpted {
	return Excerpted{Record: r, overrides: maps.Clone(overrides)}
}

// Field returns the highlighted value when one exists, else the stored value.
func (e Excerpted) Field(name string) (string, bool) {
	if v, ok := e.overrides[name]; ok {
		return v, true
	}
	return e.Record.Field(name)
}

// Original returns the wrapped record.
func (e Excerpted) Original() Record { return e.Record }

// Highlighted returns the names of the overridden fields, sorted.
func (e Excerpted) Highlighted() []string {
	names := make([]string, 0, len(e.overrides))
	for n := range e.overrides {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Word holds the daemon's per-keyword statistics.
type Word struct {
	Word string
	Docs int
	Hits int
}

// Ref identifies a matched record without loading it.
type Ref struct {
	EntityType string
	ID         uint64
	Weight     int
	Rank       int
}
