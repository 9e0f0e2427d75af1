package search

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/docid"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
)

// Assembler turns daemon matches into records in rank order.
type Assembler struct {
	codec         docid.Codec
	records       RecordStore
	ignoreMissing bool
	logger        *zap.Logger
}

// NewAssembler creates an assembler. With ignoreMissing, records the store
// cannot find are dropped from the page instead of failing it.
func NewAssembler(codec docid.Codec, records RecordStore, ignoreMissing bool, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{codec: codec, records: records, ignoreMissing: ignoreMissing, logger: logger}
}

// Refs decodes matches without loading records.
func (a *Assembler) Refs(matches []db.Match, page, perPage int) ([]result.Ref, error) {
	ordered := byPosition(matches)
	out := make([]result.Ref, 0, len(ordered))
	for i, m := range ordered {
		name, id, err := a.codec.DecodeName(m.DocID)
		if err != nil {
			return nil, err
		}
		out = append(out, result.Ref{EntityType: name, ID: id, Weight: m.Weight, Rank: rank(page, perPage, i)})
	}
	return out, nil
}

// Assemble loads the records behind matches, one batched fetch per entity
// type, and returns them in the daemon's rank order.
func (a *Assembler) Assemble(ctx context.Context, matches []db.Match, page, perPage int) ([]result.Hit, error) {
	ordered := byPosition(matches)
	if len(ordered) == 0 {
		return nil, nil
	}

	// flat id → slot in rank order
	slot := make(map[uint64]int, len(ordered))
	idsByType := make(map[string][]uint64)
	var types []string
	for i, m := range ordered {
		name, id, err := a.codec.DecodeName(m.DocID)
		if err != nil {
			return nil, err
		}
		slot[m.DocID] = i
		if _, seen := idsByType[name]; !seen {
			types = append(types, name)
		}
		idsByType[name] = append(idsByType[name], id)
	}

	fetched := make([][]result.Record, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, et := range types {
		g.Go(func() error {
			recs, err := a.records.Fetch(gctx, et, idsByType[et])
			if err != nil {
				return fmt.Errorf("fetch %s: %w", et, err)
			}
			fetched[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	placed := make([]result.Record, len(ordered))
	for _, recs := range fetched {
		for _, r := range recs {
			flat, err := a.codec.EncodeName(r.EntityType(), r.ID())
			if err != nil {
				return nil, domain.Responsef("record %s:%d: %v", r.EntityType(), r.ID(), err)
			}
			i, ok := slot[flat]
			if !ok {
				return nil, domain.Responsef(
					"impossible reverse id for %s:%d (document %d)", r.EntityType(), r.ID(), flat)
			}
			placed[i] = r
		}
	}

	hits := make([]result.Hit, 0, len(placed))
	for i, r := range placed {
		if r == nil {
			name, id, _ := a.codec.DecodeName(ordered[i].DocID)
			if !a.ignoreMissing {
				return nil, fmt.Errorf("%w: %s:%d", domain.ErrRecordNotFound, name, id)
			}
			a.logger.Warn("Skipping missing record", zap.String("entity_type", name), zap.Uint64("id", id))
			continue
		}
		hits = append(hits, result.NewHit(r, rank(page, perPage, len(hits))))
	}
	return hits, nil
}

func byPosition(matches []db.Match) []db.Match {
	ordered := slices.Clone(matches)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })
	return ordered
}

func rank(page, perPage, i int) int {
	return perPage*(page-1) + i
}
