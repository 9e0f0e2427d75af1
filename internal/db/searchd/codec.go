package searchd

import (
	"encoding/binary"
	"errors"
	"math"
)

var errShortBody = errors.New("response body truncated")

// writer appends big-endian protocol values.
type writer struct {
	buf []byte
}

func (w *writer) uint32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *writer) uint64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }
func (w *writer) int(v int)       { w.uint32(uint32(v)) } //nolint:gosec // protocol field is u32
func (w *writer) float32(v float32) {
	w.uint32(math.Float32bits(v))
}

func (w *writer) bool(v bool) {
	if v {
		w.uint32(1)
		return
	}
	w.uint32(0)
}

func (w *writer) string(s string) {
	w.int(len(s))
	w.buf = append(w.buf, s...)
}

// reader consumes big-endian protocol values. The first short read sticks
// in err and every later read returns zero values.
type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf) < n {
		r.err = errShortBody
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) int() int { return int(r.uint32()) }

func (r *reader) float32() float32 { return math.Float32frombits(r.uint32()) }

func (r *reader) string() string {
	n := r.uint32()
	if uint64(n) > uint64(len(r.buf)) {
		r.err = errShortBody
		return ""
	}
	return string(r.take(int(n)))
}

// count reads an element count and bounds it by the remaining body, so a
// corrupt count cannot trigger a huge allocation.
func (r *reader) count(minElemSize int) int {
	n := r.uint32()
	if r.err != nil {
		return 0
	}
	if uint64(n)*uint64(minElemSize) > uint64(len(r.buf)) {
		r.err = errShortBody
		return 0
	}
	return int(n)
}
