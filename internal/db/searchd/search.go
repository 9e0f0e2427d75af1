package searchd

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
)

// Search runs one query and decodes the reply.
func (c *Client) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	body, warning, err := c.roundTrip(ctx, db.OpSearch, commandSearch, versionSearch, encodeSearch(q))
	if err != nil {
		return nil, err
	}

	res, err := decodeSearch(body)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	if res.Warning == "" {
		res.Warning = warning
	}
	return res, nil
}

func encodeSearch(q *db.SearchQuery) []byte {
	w := &writer{}
	w.uint32(1) // queries in this batch

	w.int(q.Offset)
	w.int(q.Limit)
	w.uint32(uint32(q.MatchMode))
	w.uint32(q.SortMode.Wire())
	w.string(q.SortBy)
	w.string(q.Query)

	w.int(len(q.Weights))
	for _, wt := range q.Weights {
		w.int(wt)
	}

	w.string(q.Index)

	// 64-bit id range, 0..0 means unbounded
	w.uint32(1)
	w.uint64(0)
	w.uint64(0)

	w.int(len(q.Filters))
	for _, f := range q.Filters {
		w.string(f.Attribute())
		w.uint32(uint32(f.Kind()))
		switch f.Kind() {
		case filter.KindValues:
			w.int(len(f.Values()))
			for _, v := range f.Values() {
				w.uint64(uint64(v))
			}
		case filter.KindRange:
			lo, hi := f.Range()
			w.uint64(uint64(lo))
			w.uint64(uint64(hi))
		case filter.KindFloatRange:
			lo, hi := f.FloatRange()
			w.float32(float32(lo))
			w.float32(float32(hi))
		}
		w.bool(f.Exclude())
	}

	w.uint32(uint32(q.GroupFunc))
	w.string(q.GroupBy)
	w.int(q.MaxMatches)
	w.string(q.GroupSort)
	w.int(q.Cutoff)
	w.uint32(0) // daemon-side retry count
	w.uint32(0) // daemon-side retry delay
	w.string("") // group distinct

	w.uint32(0) // geo anchor
	w.uint32(0) // per-index weights

	return w.buf
}

// Per-query status codes inside a search reply.
const (
	queryOK      = 0
	queryError   = 1
	queryRetry   = 2
	queryWarning = 3
)

func decodeSearch(body []byte) (*db.SearchResult, error) {
	r := &reader{buf: body}
	res := &db.SearchResult{}

	switch status := r.uint32(); status {
	case queryOK:
	case queryWarning:
		res.Warning = r.string()
	case queryError:
		msg := r.string()
		return nil, fmt.Errorf("%w: %s", domain.ErrDaemon, msg)
	case queryRetry:
		msg := r.string()
		return nil, fmt.Errorf("%w: %s", domain.ErrTransient, msg)
	default:
		if r.err == nil {
			return nil, domain.Responsef("unknown query status %d", status)
		}
	}

	nFields := r.count(4)
	res.Fields = make([]string, 0, nFields)
	for range nFields {
		res.Fields = append(res.Fields, r.string())
	}

	nAttrs := r.count(8)
	res.Attributes = make([]db.Attribute, 0, nAttrs)
	for range nAttrs {
		res.Attributes = append(res.Attributes, db.Attribute{Name: r.string(), Type: r.uint32()})
	}

	nMatches := r.count(8)
	id64 := r.uint32() != 0
	res.Matches = make([]db.Match, 0, nMatches)
	for i := range nMatches {
		m := db.Match{Position: i, Attrs: make(map[string]any, len(res.Attributes))}
		if id64 {
			m.DocID = r.uint64()
		} else {
			m.DocID = uint64(r.uint32())
		}
		m.Weight = r.int()
		for _, a := range res.Attributes {
			m.Attrs[a.Name] = readAttr(r, a.Type)
		}
		res.Matches = append(res.Matches, m)
	}

	res.Total = r.int()
	res.TotalFound = r.int()
	res.Elapsed = time.Duration(r.uint32()) * time.Millisecond

	nWords := r.count(12)
	res.Words = make([]result.Word, 0, nWords)
	for range nWords {
		res.Words = append(res.Words, result.Word{Word: r.string(), Docs: r.int(), Hits: r.int()})
	}

	if r.err != nil {
		return nil, domain.Responsef("decode search reply: %v", r.err)
	}
	return res, nil
}

func readAttr(r *reader, typ uint32) any {
	if typ&db.AttrMulti != 0 {
		n := r.count(4)
		vs := make([]int64, 0, n)
		for range n {
			vs = append(vs, int64(r.uint32()))
		}
		return vs
	}
	switch typ {
	case db.AttrFloat:
		return r.float32()
	case db.AttrBigint:
		return int64(r.uint64()) //nolint:gosec // bigint attributes are signed on the daemon side
	default:
		return int64(r.uint32())
	}
}
