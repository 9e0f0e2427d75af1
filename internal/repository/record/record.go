// Package record adapts backend stores to the record fetches the search
// pipeline needs: batched lookups by native id and facet value listings.
package record

import (
	"hash/crc32"
	"sort"
	"strconv"
)

// FacetValue pairs a distinct text value with the hash stored in its
// shadow facet attribute.
type FacetValue struct {
	Value string
	Hash  uint32
}

// Hash computes the facet shadow hash of a text value (CRC-32, IEEE).
// The indexer must store the same checksum in the <field>_facet attribute.
func Hash(value string) uint32 {
	return crc32.ChecksumIEEE([]byte(value))
}

// facetValues dedups values. The empty value is kept: records without the
// field are indexed under Hash("") == 0 and must resolve too.
func facetValues(values []string) []FacetValue {
	seen := make(map[string]struct{}, len(values))
	out := make([]FacetValue, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, FacetValue{Value: v, Hash: Hash(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
