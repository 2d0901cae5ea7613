// Package state implements the binary codec used by save states.
//
// Scalars are stored as their little-endian byte representation. Composite
// values (byte arrays, framebuffers) are stored as a uint32 element count
// followed by the elements, so a reader can validate their size.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrTruncated is returned when a state stream ends before all fields are read.
var ErrTruncated = errors.New("state: truncated stream")

// ErrLength is returned when a composite field does not have the expected size.
var ErrLength = errors.New("state: unexpected field length")

// Stater is implemented by every component that takes part in a save state.
type Stater interface {
	Save(w *Writer)
	Load(r *Reader)
}

// Writer accumulates a state stream in memory.
type Writer struct {
	raw []byte
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{raw: make([]byte, 0, 256*1024)}
}

func (w *Writer) Write8(value uint8) {
	w.raw = append(w.raw, value)
}

func (w *Writer) Write16(value uint16) {
	w.raw = binary.LittleEndian.AppendUint16(w.raw, value)
}

func (w *Writer) Write32(value uint32) {
	w.raw = binary.LittleEndian.AppendUint32(w.raw, value)
}

func (w *Writer) Write64(value uint64) {
	w.raw = binary.LittleEndian.AppendUint64(w.raw, value)
}

func (w *Writer) WriteInt(value int) {
	w.Write64(uint64(int64(value)))
}

func (w *Writer) WriteFloat64(value float64) {
	w.Write64(math.Float64bits(value))
}

func (w *Writer) WriteBool(value bool) {
	if value {
		w.raw = append(w.raw, 1)
		return
	}
	w.raw = append(w.raw, 0)
}

// WriteRaw appends data with no length prefix. Used for fixed headers.
func (w *Writer) WriteRaw(data []byte) {
	w.raw = append(w.raw, data...)
}

// WriteBytes appends a length-prefixed byte sequence.
func (w *Writer) WriteBytes(data []byte) {
	w.Write32(uint32(len(data)))
	w.raw = append(w.raw, data...)
}

// WriteUint32s appends a length-prefixed sequence of words.
func (w *Writer) WriteUint32s(data []uint32) {
	w.Write32(uint32(len(data)))
	for _, v := range data {
		w.raw = binary.LittleEndian.AppendUint32(w.raw, v)
	}
}

// Bytes returns the encoded stream.
func (w *Writer) Bytes() []byte {
	return w.raw
}

// Reader decodes a state stream. The first failure is sticky: once Err is
// non-nil every subsequent read returns a zero value.
type Reader struct {
	raw []byte
	pos int
	err error
}

// NewReader wraps raw for decoding.
func NewReader(raw []byte) *Reader {
	return &Reader{raw: raw}
}

// Err returns the first error encountered while decoding.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns how many bytes have not been consumed yet.
func (r *Reader) Remaining() int {
	return len(r.raw) - r.pos
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.raw) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.pos, len(r.raw)-r.pos)
		return nil
	}
	b := r.raw[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) Read8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Read16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) Read32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Read64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) ReadInt() int {
	return int(int64(r.Read64()))
}

func (r *Reader) ReadFloat64() float64 {
	return math.Float64frombits(r.Read64())
}

func (r *Reader) ReadBool() bool {
	return r.Read8() != 0
}

// ReadRaw reads exactly len(dst) bytes with no length prefix.
func (r *Reader) ReadRaw(dst []byte) {
	b := r.take(len(dst))
	if b != nil {
		copy(dst, b)
	}
}

// ReadBytes reads a length-prefixed byte sequence into a new slice.
func (r *Reader) ReadBytes() []byte {
	n := r.Read32()
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ExpectBytes reads a length-prefixed byte sequence into dst, which must have
// exactly the encoded length.
func (r *Reader) ExpectBytes(dst []byte) {
	n := r.Read32()
	if r.err != nil {
		return
	}
	if int(n) != len(dst) {
		r.err = fmt.Errorf("%w: got %d bytes, want %d", ErrLength, n, len(dst))
		return
	}
	r.ReadRaw(dst)
}

// ExpectUint32s reads a length-prefixed word sequence into dst, which must
// have exactly the encoded length.
func (r *Reader) ExpectUint32s(dst []uint32) {
	n := r.Read32()
	if r.err != nil {
		return
	}
	if int(n) != len(dst) {
		r.err = fmt.Errorf("%w: got %d words, want %d", ErrLength, n, len(dst))
		return
	}
	b := r.take(int(n) * 4)
	if b == nil {
		return
	}
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
}

// Fail records err as the decoding error, unless one was already recorded.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
