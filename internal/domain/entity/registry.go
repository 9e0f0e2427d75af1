package entity

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/unisearch/internal/domain"
)

// Registry is the immutable bijection between entity type names and their
// small integer ids. Ids are dense: every id in [0, Size) maps to a name.
type Registry struct {
	ids   map[string]int
	names []string
}

// NewRegistry validates the generated name→id map and builds a Registry.
func NewRegistry(types map[string]int) (*Registry, error) {
	if len(types) == 0 {
		return nil, domain.Configurationf("entity type registry is empty")
	}

	names := make([]string, len(types))
	ids := make(map[string]int, len(types))
	for name, id := range types {
		if name == "" {
			return nil, domain.Configurationf("entity type with id %d has no name", id)
		}
		if id < 0 || id >= len(types) {
			return nil, domain.Configurationf(
				"entity type %q has id %d outside [0, %d)", name, id, len(types))
		}
		if names[id] != "" {
			return nil, domain.Configurationf(
				"entity types %q and %q share id %d", names[id], name, id)
		}
		names[id] = name
		ids[name] = id
	}

	return &Registry{ids: ids, names: names}, nil
}

// MustNewRegistry is NewRegistry for tests and static tables.
func MustNewRegistry(types map[string]int) *Registry {
	r, err := NewRegistry(types)
	if err != nil {
		panic(err)
	}
	return r
}

// Size returns the number of entity types.
func (r *Registry) Size() int { return len(r.names) }

// ID returns the id of the named entity type.
func (r *Registry) ID(name string) (int, bool) {
	id, ok := r.ids[name]
	return id, ok
}

// Name returns the entity type name for id.
func (r *Registry) Name(id int) (string, bool) {
	if id < 0 || id >= len(r.names) {
		return "", false
	}
	return r.names[id], true
}

// IDs resolves entity type names, failing with ErrUsage on the first unknown name.
func (r *Registry) IDs(names []string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, n := range names {
		id, ok := r.ids[n]
		if !ok {
			return nil, domain.Usagef("invalid entity type %q", n)
		}
		out = append(out, id)
	}
	return out, nil
}

// Names returns all entity type names sorted alphabetically.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	sort.Strings(out)
	return out
}

// String implements fmt.Stringer for log output.
func (r *Registry) String() string {
	return fmt.Sprintf("entity.Registry(%d types)", len(r.names))
}
