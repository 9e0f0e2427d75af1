// Package docid multiplexes (entity type, native id) pairs into the flat
// document id space shared by every entity type in the unified index.
package docid

import (
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
)

// Codec stripes native ids by the registry size.
// flat = native*N + type, so ids from different tables never collide.
type Codec struct {
	registry *entity.Registry
}

// New creates a codec bound to the registry the index was generated with.
func New(registry *entity.Registry) Codec {
	return Codec{registry: registry}
}

// Encode returns the flat document id for a record.
func (c Codec) Encode(entityTypeID int, nativeID uint64) uint64 {
	n := uint64(c.registry.Size())
	return nativeID*n + uint64(entityTypeID)
}

// EncodeName is Encode keyed by entity type name.
func (c Codec) EncodeName(entityType string, nativeID uint64) (uint64, error) {
	id, ok := c.registry.ID(entityType)
	if !ok {
		return 0, domain.Usagef("invalid entity type %q", entityType)
	}
	return c.Encode(id, nativeID), nil
}

// Decode splits a flat id. A type slot outside the registry means the index
// and the registry were generated separately.
func (c Codec) Decode(flat uint64) (entityTypeID int, nativeID uint64, err error) {
	n := uint64(c.registry.Size())
	entityTypeID = int(flat % n)
	if _, ok := c.registry.Name(entityTypeID); !ok {
		return 0, 0, domain.Responsef("impossible document id %d in query result", flat)
	}
	return entityTypeID, flat / n, nil
}

// DecodeName is Decode returning the entity type name.
func (c Codec) DecodeName(flat uint64) (string, uint64, error) {
	id, native, err := c.Decode(flat)
	if err != nil {
		return "", 0, err
	}
	name, _ := c.registry.Name(id)
	return name, native, nil
}
