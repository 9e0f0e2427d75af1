package searchd

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/mode"
)

// --- Fake daemon ---

type captured struct {
	command uint16
	version uint16
	body    []byte
}

// fakeDaemon serves every dial over an in-memory pipe.
type fakeDaemon struct {
	// reply is called with the request and returns status and body;
	// hangup closes the session right after reading the request.
	reply  func(req captured) (status uint16, body []byte)
	hangup bool
	dialFn func() error

	mu       sync.Mutex
	requests []captured
}

func (f *fakeDaemon) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	if f.dialFn != nil {
		if err := f.dialFn(); err != nil {
			return nil, err
		}
	}
	client, server := net.Pipe()
	go f.serve(server)
	return client, nil
}

func (f *fakeDaemon) serve(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	var word [4]byte
	binary.BigEndian.PutUint32(word[:], protocolVersion)
	if _, err := conn.Write(word[:]); err != nil {
		return
	}
	if _, err := io.ReadFull(conn, word[:]); err != nil {
		return
	}

	var hdr [8]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return
	}
	req := captured{
		command: binary.BigEndian.Uint16(hdr[0:]),
		version: binary.BigEndian.Uint16(hdr[2:]),
		body:    make([]byte, binary.BigEndian.Uint32(hdr[4:])),
	}
	if _, err := io.ReadFull(conn, req.body); err != nil {
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.hangup || f.reply == nil {
		return
	}
	status, body := f.reply(req)
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint16(out[0:], status)
	binary.BigEndian.PutUint16(out[2:], req.version)
	binary.BigEndian.PutUint32(out[4:], uint32(len(body)))
	_, _ = conn.Write(append(out, body...))
}

func newTestClient(t *testing.T, f *fakeDaemon) *Client {
	t.Helper()
	c, err := New(Config{Host: "searchd.test", Port: 3312, Dialer: f, IOTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

// searchReply builds a reply with a class_id and an @count attribute.
func searchReply(matches [][3]uint64) []byte {
	w := &writer{}
	w.uint32(queryOK)
	w.uint32(1)
	w.string("title")
	w.uint32(2)
	w.string("class_id")
	w.uint32(db.AttrInteger)
	w.string("@count")
	w.uint32(db.AttrInteger)
	w.int(len(matches))
	w.uint32(1)
	for _, m := range matches {
		w.uint64(m[0])
		w.uint32(100)
		w.uint32(uint32(m[1]))
		w.uint32(uint32(m[2]))
	}
	w.uint32(uint32(len(matches)))
	w.uint32(42)
	w.uint32(15)
	w.uint32(1)
	w.string("artichoke")
	w.uint32(40)
	w.uint32(77)
	return w.buf
}

func testQuery(t *testing.T) *db.SearchQuery {
	t.Helper()
	f, err := filter.NewRange("capitalization", 20, 10, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &db.SearchQuery{
		Index:      domain.UnifiedIndexName,
		Query:      "artichoke",
		Offset:     20,
		Limit:      10,
		MaxMatches: 30,
		MatchMode:  mode.MatchExtended,
		SortMode:   mode.Relevance,
		Weights:    []int{1, 3},
		Filters:    []filter.Filter{f},
	}
}

// --- Tests ---

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Port: 3312}); err == nil {
		t.Fatal("expected error for missing host")
	}
	if _, err := New(Config{Host: "localhost", Port: 70000}); err == nil {
		t.Fatal("expected error for bad port")
	}
	c, err := New(Config{Host: "localhost", Port: 3312})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Addr() != "localhost:3312" {
		t.Errorf("Addr() = %q", c.Addr())
	}
}

func TestSearch_DecodesReply(t *testing.T) {
	f := &fakeDaemon{reply: func(captured) (uint16, []byte) {
		return statusOK, searchReply([][3]uint64{{31, 1, 0}, {12, 0, 0}})
	}}
	c := newTestClient(t, f)

	res, err := c.Search(context.Background(), testQuery(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(res.Matches))
	}
	if res.Matches[0].DocID != 31 || res.Matches[0].Position != 0 {
		t.Errorf("match 0 = %+v", res.Matches[0])
	}
	if res.Matches[1].DocID != 12 || res.Matches[1].Position != 1 {
		t.Errorf("match 1 = %+v", res.Matches[1])
	}
	if v, ok := res.Matches[0].Int("class_id"); !ok || v != 1 {
		t.Errorf("class_id = %v, %v", v, ok)
	}
	if res.TotalFound != 42 || res.Total != 2 {
		t.Errorf("totals = %d/%d", res.Total, res.TotalFound)
	}
	if res.Elapsed != 15*time.Millisecond {
		t.Errorf("Elapsed = %v", res.Elapsed)
	}
	if len(res.Words) != 1 || res.Words[0].Word != "artichoke" || res.Words[0].Hits != 77 {
		t.Errorf("Words = %+v", res.Words)
	}
}

func TestSearch_EncodesRequest(t *testing.T) {
	f := &fakeDaemon{reply: func(captured) (uint16, []byte) {
		return statusOK, searchReply(nil)
	}}
	c := newTestClient(t, f)

	if _, err := c.Search(context.Background(), testQuery(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(f.requests))
	}
	req := f.requests[0]
	if req.command != commandSearch || req.version != versionSearch {
		t.Errorf("command/version = %d/%#x", req.command, req.version)
	}

	r := &reader{buf: req.body}
	if n := r.uint32(); n != 1 {
		t.Errorf("query count = %d", n)
	}
	if off, lim := r.int(), r.int(); off != 20 || lim != 10 {
		t.Errorf("offset/limit = %d/%d", off, lim)
	}
	if mm := r.uint32(); mm != uint32(mode.MatchExtended) {
		t.Errorf("match mode = %d", mm)
	}
	if sm := r.uint32(); sm != 0 {
		t.Errorf("sort mode = %d", sm)
	}
	if sb := r.string(); sb != "" {
		t.Errorf("sort by = %q", sb)
	}
	if q := r.string(); q != "artichoke" {
		t.Errorf("query = %q", q)
	}
	if n := r.uint32(); n != 2 {
		t.Fatalf("weight count = %d", n)
	}
	if w1, w2 := r.uint32(), r.uint32(); w1 != 1 || w2 != 3 {
		t.Errorf("weights = %d, %d", w1, w2)
	}
	if idx := r.string(); idx != "complete" {
		t.Errorf("index = %q", idx)
	}
	r.uint32()
	r.uint64()
	r.uint64()
	if n := r.uint32(); n != 1 {
		t.Fatalf("filter count = %d", n)
	}
	if attr := r.string(); attr != "capitalization" {
		t.Errorf("filter attr = %q", attr)
	}
	if kind := r.uint32(); kind != uint32(filter.KindRange) {
		t.Errorf("filter kind = %d", kind)
	}
	if lo, hi := r.uint64(), r.uint64(); lo != 10 || hi != 20 {
		t.Errorf("range sent as (%d, %d), want (10, 20)", lo, hi)
	}
	if r.err != nil {
		t.Fatalf("decode request: %v", r.err)
	}
}

func TestSearch_Warning(t *testing.T) {
	f := &fakeDaemon{reply: func(captured) (uint16, []byte) {
		w := &writer{}
		w.string("index is being rotated")
		return statusWarning, append(w.buf, searchReply(nil)...)
	}}
	c := newTestClient(t, f)

	res, err := c.Search(context.Background(), testQuery(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Warning != "index is being rotated" {
		t.Errorf("Warning = %q", res.Warning)
	}
}

func TestSearch_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status uint16
		want   error
	}{
		{"retry", statusRetry, domain.ErrTransient},
		{"error", statusError, domain.ErrDaemon},
		{"unknown", 9, domain.ErrResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeDaemon{reply: func(captured) (uint16, []byte) {
				w := &writer{}
				w.string("daemon says no")
				return tt.status, w.buf
			}}
			c := newTestClient(t, f)

			_, err := c.Search(context.Background(), testQuery(t))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var dbErr *db.Error
			if !errors.As(err, &dbErr) || dbErr.Op != db.OpSearch {
				t.Errorf("expected db.Error with op SEARCH, got %v", err)
			}
		})
	}
}

func TestSearch_QueryLevelError(t *testing.T) {
	f := &fakeDaemon{reply: func(captured) (uint16, []byte) {
		w := &writer{}
		w.uint32(queryError)
		w.string("syntax error near '|'")
		return statusOK, w.buf
	}}
	c := newTestClient(t, f)

	_, err := c.Search(context.Background(), testQuery(t))
	if !errors.Is(err, domain.ErrDaemon) {
		t.Fatalf("expected ErrDaemon, got %v", err)
	}
	if errors.Is(err, domain.ErrTransient) {
		t.Fatal("daemon syntax error must not be transient")
	}
}

func TestSearch_TruncatedReply(t *testing.T) {
	f := &fakeDaemon{reply: func(captured) (uint16, []byte) {
		body := searchReply([][3]uint64{{31, 1, 0}})
		return statusOK, body[:len(body)-20]
	}}
	c := newTestClient(t, f)

	_, err := c.Search(context.Background(), testQuery(t))
	if !errors.Is(err, domain.ErrResponse) {
		t.Fatalf("expected ErrResponse, got %v", err)
	}
}

func TestSearch_Hangup(t *testing.T) {
	f := &fakeDaemon{hangup: true}
	c := newTestClient(t, f)

	_, err := c.Search(context.Background(), testQuery(t))
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestHandshake_VersionMismatch(t *testing.T) {
	c, err := New(Config{Host: "searchd.test", Port: 3312, Dialer: versionZeroDaemon{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = c.Ping(context.Background())
	if !errors.Is(err, domain.ErrResponse) {
		t.Fatalf("expected ErrResponse, got %v", err)
	}
	if errors.Is(err, domain.ErrTransient) {
		t.Fatal("version mismatch must not be transient")
	}
}

// versionZeroDaemon announces protocol version 0.
type versionZeroDaemon struct{}

func (versionZeroDaemon) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	client, server := net.Pipe()
	go func() {
		defer func() { _ = server.Close() }()
		var word [4]byte
		_, _ = server.Write(word[:])
	}()
	return client, nil
}

func TestPing_Success(t *testing.T) {
	c := newTestClient(t, &fakeDaemon{hangup: true})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDial_Refused(t *testing.T) {
	f := &fakeDaemon{dialFn: func() error {
		return &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	}}
	c := newTestClient(t, f)

	_, err := c.Search(context.Background(), testQuery(t))
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpHandshake {
		t.Errorf("expected handshake db.Error, got %v", err)
	}
}

func TestSearch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := New(Config{Host: "searchd.test", Port: 3312, Dialer: &cancelingDaemon{cancel: cancel}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = c.Search(ctx, testQuery(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrTransient) {
		t.Fatal("cancellation must not be transient")
	}
}

// cancelingDaemon reads the request, cancels the caller's context and never replies.
type cancelingDaemon struct {
	cancel context.CancelFunc
}

func (f *cancelingDaemon) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	client, server := net.Pipe()
	go func() {
		defer func() { _ = server.Close() }()
		var word [4]byte
		binary.BigEndian.PutUint32(word[:], 1)
		if _, err := server.Write(word[:]); err != nil {
			return
		}
		if _, err := io.ReadFull(server, word[:]); err != nil {
			return
		}
		var hdr [8]byte
		if _, err := io.ReadFull(server, hdr[:]); err != nil {
			return
		}
		body := make([]byte, binary.BigEndian.Uint32(hdr[4:]))
		if _, err := io.ReadFull(server, body); err != nil {
			return
		}
		f.cancel()
		// hold the session open until the client gives up
		_, _ = io.Copy(io.Discard, server)
	}()
	return client, nil
}

func TestExcerpt(t *testing.T) {
	f := &fakeDaemon{reply: func(req captured) (uint16, []byte) {
		r := &reader{buf: req.body}
		r.uint32()
		r.uint32()
		r.string()
		words := r.string()
		before, after := r.string(), r.string()
		r.string()
		r.int()
		r.int()
		n := r.int()
		w := &writer{}
		for range n {
			doc := r.string()
			w.string(before + words + after + " in " + doc)
		}
		return statusOK, w.buf
	}}
	c := newTestClient(t, f)

	out, err := c.Excerpt(context.Background(), &db.ExcerptQuery{
		Index:       domain.UnifiedIndexName,
		Words:       "artichoke",
		Docs:        []string{"a", "b"},
		BeforeMatch: "<strong>",
		AfterMatch:  "</strong>",
		Limit:       200,
		Around:      1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[1] != "<strong>artichoke</strong> in b" {
		t.Errorf("Excerpt() = %q", out)
	}
	if f.requests[0].command != commandExcerpt {
		t.Errorf("command = %d", f.requests[0].command)
	}
}

func TestExcerpt_NoDocs(t *testing.T) {
	f := &fakeDaemon{}
	c := newTestClient(t, f)
	out, err := c.Excerpt(context.Background(), &db.ExcerptQuery{})
	if err != nil || out != nil {
		t.Fatalf("Excerpt() = %v, %v", out, err)
	}
	if len(f.requests) != 0 {
		t.Error("expected no daemon round trip")
	}
}
