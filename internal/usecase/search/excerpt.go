package search

import (
	"context"
	"regexp"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
)

// ExcerptConfig holds highlighting settings. Each slot lists candidate field
// names; the first one a record has is excerpted.
type ExcerptConfig struct {
	BeforeMatch    string
	AfterMatch     string
	ChunkSeparator string
	Limit          int
	Around         int
	Slots          [][]string
}

// DefaultExcerptConfig returns the stock highlighting settings.
func DefaultExcerptConfig() ExcerptConfig {
	return ExcerptConfig{
		BeforeMatch:    "<strong>",
		AfterMatch:     "</strong>",
		ChunkSeparator: "...",
		Limit:          200,
		Around:         1,
		Slots: [][]string{
			{"title", "name"},
			{"body", "description", "content"},
		},
	}
}

var (
	markupRe = regexp.MustCompile(`<.*?>|\.\.\.|…|\n|\r`)
	urlRe    = regexp.MustCompile(`http.*?( |$)`)
)

// cleanExcerptText removes markup, ellipses, line breaks and URLs before highlighting.
func cleanExcerptText(s string) string {
	return urlRe.ReplaceAllString(markupRe.ReplaceAllString(s, " "), " ")
}

type excerptSource struct {
	hit   int
	field string
}

// Excerpt replaces the slot fields of each hit with highlighted fragments.
// The stored records are left untouched; hits get an excerpted view instead.
func (s *Service) Excerpt(ctx context.Context, hits []result.Hit, parsed string) ([]result.Hit, error) {
	if len(hits) == 0 {
		return hits, nil
	}

	var docs []string
	var sources []excerptSource
	for i, h := range hits {
		for _, slot := range s.cfg.Excerpt.Slots {
			for _, name := range slot {
				if v, ok := h.Record().Field(name); ok {
					docs = append(docs, cleanExcerptText(v))
					sources = append(sources, excerptSource{hit: i, field: name})
					break
				}
			}
		}
	}
	if len(docs) == 0 {
		return hits, nil
	}

	ec := s.cfg.Excerpt
	fragments, err := s.daemon.Excerpt(ctx, &db.ExcerptQuery{
		Index:          s.cfg.Index,
		Words:          query.Words(parsed),
		Docs:           docs,
		BeforeMatch:    ec.BeforeMatch,
		AfterMatch:     ec.AfterMatch,
		ChunkSeparator: ec.ChunkSeparator,
		Limit:          ec.Limit,
		Around:         ec.Around,
	})
	if err != nil {
		return nil, err
	}
	if len(fragments) != len(docs) {
		return nil, domain.Responsef("excerpt: sent %d documents, got %d fragments", len(docs), len(fragments))
	}

	overrides := make([]map[string]string, len(hits))
	for i, src := range sources {
		if overrides[src.hit] == nil {
			overrides[src.hit] = make(map[string]string)
		}
		overrides[src.hit][src.field] = fragments[i]
	}

	out := make([]result.Hit, len(hits))
	for i, h := range hits {
		if overrides[i] == nil {
			out[i] = h
			continue
		}
		out[i] = h.WithRecord(result.NewExcerpted(h.Record(), overrides[i]))
	}
	return out, nil
}
