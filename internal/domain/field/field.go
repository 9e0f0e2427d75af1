package field

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/unisearch/internal/domain"
)

// Type is the declared attribute type of an indexed field.
type Type string

// Field type constants.
const (
	Text    Type = "text"
	Numeric Type = "numeric"
	// Date fields are stored by the daemon as unix timestamps.
	Date Type = "date"
)

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	return t == Text || t == Numeric || t == Date
}

// Field is an immutable value object describing one indexed field.
type Field struct {
	name        string
	fieldType   Type
	entityTypes []string
}

// New validates and creates a Field.
// entityTypes lists the entity types declaring the field; it drives facet cache rebuilds.
func New(name string, ft Type, entityTypes ...string) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	types := make([]string, len(entityTypes))
	copy(types, entityTypes)
	sort.Strings(types)
	return Field{name: name, fieldType: ft, entityTypes: types}, nil
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the declared type.
func (f Field) FieldType() Type { return f.fieldType }

// EntityTypes returns the entity types declaring the field, sorted.
func (f Field) EntityTypes() []string { return f.entityTypes }

// Set is the process-wide field name → Field map, shared by every entity type.
type Set struct {
	fields map[string]Field
	text   []string
}

// NewSet builds a Set. A text field's facet shadow attribute, when declared,
// must be numeric because the daemon only groups on integer attributes.
func NewSet(fields []Field) (*Set, error) {
	s := &Set{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if _, dup := s.fields[f.name]; dup {
			return nil, domain.Configurationf("field %q declared twice", f.name)
		}
		s.fields[f.name] = f
		if f.fieldType == Text {
			s.text = append(s.text, f.name)
		}
	}
	sort.Strings(s.text)

	for _, name := range s.text {
		if shadow, ok := s.fields[name+domain.FacetSuffix]; ok && shadow.fieldType != Numeric {
			return nil, domain.Configurationf(
				"facet attribute %q must be numeric, got %s", shadow.name, shadow.fieldType)
		}
	}
	return s, nil
}

// MustNewSet is NewSet for tests and static tables.
func MustNewSet(fields ...Field) *Set {
	s, err := NewSet(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the named field.
func (s *Set) Lookup(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// TypeOf returns the declared type of name, or "" when unknown.
func (s *Set) TypeOf(name string) Type {
	return s.fields[name].fieldType
}

// TextFields returns text field names in the positional order the daemon
// expects for weight vectors.
func (s *Set) TextFields() []string { return s.text }

// FacetAttribute resolves the attribute to group on for name.
// Text fields are redirected to their hashed shadow; hashed reports the redirect.
func (s *Set) FacetAttribute(name string) (attr string, hashed bool, err error) {
	f, ok := s.fields[name]
	if !ok {
		return "", false, domain.Usagef("field %q does not exist", name)
	}
	if f.fieldType != Text {
		return name, false, nil
	}
	shadow := name + domain.FacetSuffix
	if _, ok := s.fields[shadow]; !ok {
		return "", false, domain.Usagef(
			"field %q is a text field, but was not configured for text faceting", name)
	}
	return shadow, true, nil
}
