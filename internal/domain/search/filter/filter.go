package filter

import (
	"fmt"
	"time"
)

// Kind is the wire shape of an attribute filter.
type Kind int

// Filter kinds, numbered as the daemon expects them.
const (
	KindValues     Kind = 0
	KindRange      Kind = 1
	KindFloatRange Kind = 2
)

// Filter is a validated attribute filter ready for the wire.
type Filter struct {
	attribute string
	kind      Kind
	values    []int64
	min, max  int64
	fmin      float64
	fmax      float64
	exclude   bool
}

// NewValues creates an inclusion (or, with exclude, exclusion) filter on a set of values.
func NewValues(attribute string, values []int64, exclude bool) (Filter, error) {
	if attribute == "" {
		return Filter{}, fmt.Errorf("filter attribute is required")
	}
	if len(values) == 0 {
		return Filter{}, fmt.Errorf("filter %q needs at least one value", attribute)
	}
	vs := make([]int64, len(values))
	copy(vs, values)
	return Filter{attribute: attribute, kind: KindValues, values: vs, exclude: exclude}, nil
}

// NewRange creates an integer range filter. Bounds are swapped when reversed.
func NewRange(attribute string, lo, hi int64, exclude bool) (Filter, error) {
	if attribute == "" {
		return Filter{}, fmt.Errorf("filter attribute is required")
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return Filter{attribute: attribute, kind: KindRange, min: lo, max: hi, exclude: exclude}, nil
}

// NewFloatRange creates a float range filter. Bounds are swapped when reversed.
func NewFloatRange(attribute string, lo, hi float64, exclude bool) (Filter, error) {
	if attribute == "" {
		return Filter{}, fmt.Errorf("filter attribute is required")
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return Filter{attribute: attribute, kind: KindFloatRange, fmin: lo, fmax: hi, exclude: exclude}, nil
}

// Attribute returns the filtered attribute name.
func (f Filter) Attribute() string { return f.attribute }

// Kind returns the filter shape.
func (f Filter) Kind() Kind { return f.kind }

// Values returns the value set of a KindValues filter.
func (f Filter) Values() []int64 { return f.values }

// Range returns the bounds of a KindRange filter.
func (f Filter) Range() (lo, hi int64) { return f.min, f.max }

// FloatRange returns the bounds of a KindFloatRange filter.
func (f Filter) FloatRange() (lo, hi float64) { return f.fmin, f.fmax }

// Exclude reports whether matching documents are excluded rather than kept.
func (f Filter) Exclude() bool { return f.exclude }

// ValueKind distinguishes the shapes a caller may supply for a field filter.
type ValueKind int

// Caller-supplied filter shapes.
const (
	ValueSet ValueKind = iota
	ValueRange
	ValueText
)

// Value is a caller-supplied filter value, coerced against the field type
// when the request is built. Scalars may be any Go number, a time.Time or a
// string holding a number or a date.
type Value struct {
	kind    ValueKind
	scalars []any
	lo, hi  any
	text    string
	exclude bool
}

// In matches any of the given scalars.
func In(values ...any) Value { return Value{kind: ValueSet, scalars: values} }

// Between matches the closed interval between lo and hi, in either order.
func Between(lo, hi any) Value { return Value{kind: ValueRange, lo: lo, hi: hi} }

// Text matches a word in a text field. It is folded into the query string
// because the daemon only filters on numeric attributes.
func Text(s string) Value { return Value{kind: ValueText, text: s} }

// Not returns the same filter with matching documents excluded.
func (v Value) Not() Value {
	v.exclude = true
	return v
}

// Kind returns the value shape.
func (v Value) Kind() ValueKind { return v.kind }

// Scalars returns the set members of a ValueSet.
func (v Value) Scalars() []any { return v.scalars }

// Bounds returns the raw bounds of a ValueRange.
func (v Value) Bounds() (lo, hi any) { return v.lo, v.hi }

// TextValue returns the text of a ValueText.
func (v Value) TextValue() string { return v.text }

// Excluded reports whether the filter excludes matches.
func (v Value) Excluded() bool { return v.exclude }

// Date layouts accepted in string filter values.
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// ParseDate parses s with the accepted date layouts.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
