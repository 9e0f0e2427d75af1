package searchd

import (
	"context"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
)

// Excerpt returns one highlighted fragment per document, in input order.
func (c *Client) Excerpt(ctx context.Context, q *db.ExcerptQuery) ([]string, error) {
	if len(q.Docs) == 0 {
		return nil, nil
	}

	body, _, err := c.roundTrip(ctx, db.OpExcerpt, commandExcerpt, versionExcerpt, encodeExcerpt(q))
	if err != nil {
		return nil, err
	}

	r := &reader{buf: body}
	out := make([]string, 0, len(q.Docs))
	for range q.Docs {
		out = append(out, r.string())
	}
	if r.err != nil {
		return nil, &db.Error{Op: db.OpExcerpt, Err: domain.Responsef("decode excerpt reply: %v", r.err)}
	}
	return out, nil
}

func encodeExcerpt(q *db.ExcerptQuery) []byte {
	w := &writer{}
	w.uint32(0) // mode
	w.uint32(1) // flags: remove spaces
	w.string(q.Index)
	w.string(q.Words)
	w.string(q.BeforeMatch)
	w.string(q.AfterMatch)
	w.string(q.ChunkSeparator)
	w.int(q.Limit)
	w.int(q.Around)
	w.int(len(q.Docs))
	for _, d := range q.Docs {
		w.string(d)
	}
	return w.buf
}
