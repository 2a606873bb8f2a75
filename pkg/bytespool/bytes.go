package bytespool

import (
	"bytes"
	"hash/maphash"
	"io"
	"slices"

	"github.com/ajitpratap0/lendpool/pkg/errors"
	"github.com/ajitpratap0/lendpool/pkg/pool"
)

// BytesMut is an exclusively owned, growable byte buffer lent from a
// BytesPool. Release hands it back; Freeze turns it into an immutable Bytes.
type BytesMut struct {
	u *pool.Unique[[]byte]
}

// NewBytesMut wraps buf in a standalone BytesMut that is never recycled.
func NewBytesMut(buf []byte) *BytesMut {
	return &BytesMut{u: pool.NewDetached(buf)}
}

// Bytes returns the buffer contents. The slice aliases the buffer and is
// only valid until the next mutation, Freeze or Release.
func (b *BytesMut) Bytes() []byte {
	return *b.u.Get()
}

// Value returns the buffer contents, making BytesMut a pool.Reader.
func (b *BytesMut) Value() []byte {
	return b.u.Value()
}

// Len returns the number of bytes written.
func (b *BytesMut) Len() int {
	return len(*b.u.Get())
}

// Cap returns the reserved capacity.
func (b *BytesMut) Cap() int {
	return cap(*b.u.Get())
}

// Append appends p to the buffer.
func (b *BytesMut) Append(p []byte) {
	buf := b.u.Get()
	*buf = append(*buf, p...)
}

// Write implements io.Writer. It never fails.
func (b *BytesMut) Write(p []byte) (int, error) {
	b.Append(p)
	return len(p), nil
}

// WriteString appends s to the buffer.
func (b *BytesMut) WriteString(s string) (int, error) {
	buf := b.u.Get()
	*buf = append(*buf, s...)
	return len(s), nil
}

// WriteByte appends c to the buffer.
func (b *BytesMut) WriteByte(c byte) error {
	buf := b.u.Get()
	*buf = append(*buf, c)
	return nil
}

// ReadFrom appends everything read from r until EOF.
func (b *BytesMut) ReadFrom(r io.Reader) (int64, error) {
	buf := b.u.Get()
	var total int64
	for {
		if len(*buf) == cap(*buf) {
			*buf = slices.Grow(*buf, 512)
		}
		n, err := r.Read((*buf)[len(*buf):cap(*buf)])
		*buf = (*buf)[:len(*buf)+n]
		total += int64(n)
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// AvailableBuffer returns an empty slice over the unused capacity. It is meant
// to be appended to and passed straight back to Append.
func (b *BytesMut) AvailableBuffer() []byte {
	buf := *b.u.Get()
	return buf[len(buf):]
}

// Grow makes room for at least n more bytes without another allocation.
func (b *BytesMut) Grow(n int) {
	buf := b.u.Get()
	*buf = slices.Grow(*buf, n)
}

// Truncate keeps the first n bytes. It panics if n is negative or beyond
// the buffer length.
func (b *BytesMut) Truncate(n int) {
	buf := b.u.Get()
	if n < 0 || n > len(*buf) {
		panic(errors.New(errors.ErrorTypeValidation, "truncate out of bounds").
			WithDetail("n", n).
			WithDetail("len", len(*buf)))
	}
	*buf = (*buf)[:n]
}

// Reset empties the buffer and keeps its capacity.
func (b *BytesMut) Reset() {
	buf := b.u.Get()
	*buf = (*buf)[:0]
}

// Freeze consumes the buffer, clips its reserved capacity to the bytes
// written, and returns an immutable view of all of them.
func (b *BytesMut) Freeze() Bytes {
	buf := b.u.Get()
	*buf = slices.Clip(*buf)
	n := len(*buf)
	return Bytes{shared: b.u.Freeze(), from: 0, to: n}
}

// FreezeRange is Freeze followed by narrowing the view to r. Bounds are
// checked against the buffer length L:
//
//   - start Included(k) needs k <= L, Excluded(k) needs k < L
//   - end Included(k) needs k < L, Excluded(k) needs k <= L
//   - Unbounded means 0 for the start and L for the end
//
// A bound outside the buffer is a programming error and panics with an
// *errors.Error of type validation; the buffer is left untouched.
func (b *BytesMut) FreezeRange(r Range) Bytes {
	from, to := r.resolve(b.Len())
	frozen := b.Freeze()
	frozen.from, frozen.to = from, to
	return frozen
}

// Release returns the buffer to its pool. Releasing twice is a no-op.
func (b *BytesMut) Release() {
	b.u.Release()
}

// Released reports whether the buffer was released or frozen.
func (b *BytesMut) Released() bool {
	return b.u.Released()
}

// Bytes is an immutable, reference-counted view of a frozen buffer. Several
// views may alias the same buffer; the buffer returns to its pool when the
// last of them is released. Views are safe to read from many goroutines.
//
// Copying a Bytes value does not add a reference; use Clone or Slice.
// The zero Bytes is an empty view with nothing to release.
type Bytes struct {
	shared   *pool.Shared[[]byte]
	from, to int
}

// FromSlice wraps p in a standalone Bytes that is never recycled. p is not
// copied and must not be modified afterwards.
func FromSlice(p []byte) Bytes {
	return NewBytesMut(p).Freeze()
}

// Bytes returns the viewed bytes. The slice capacity is clipped so appending
// to it never writes into the shared buffer. Callers must not modify it.
func (b Bytes) Bytes() []byte {
	if b.shared == nil {
		return nil
	}
	buf := b.shared.Value()
	return buf[b.from:b.to:b.to]
}

// Value returns the viewed bytes, making Bytes a pool.Reader.
func (b Bytes) Value() []byte {
	return b.Bytes()
}

// Len returns the length of the view.
func (b Bytes) Len() int {
	return b.to - b.from
}

// IsEmpty reports whether the view has no bytes.
func (b Bytes) IsEmpty() bool {
	return b.to == b.from
}

// String returns a copy of the viewed bytes as a string.
func (b Bytes) String() string {
	return string(b.Bytes())
}

// Clone returns another view of the same window and bumps the reference count.
func (b Bytes) Clone() Bytes {
	if b.shared == nil {
		return Bytes{}
	}
	return Bytes{shared: b.shared.Clone(), from: b.from, to: b.to}
}

// Slice returns a new view of r, resolved against this view, over the same
// buffer. Nothing is copied. Bounds follow the FreezeRange rules and a
// violation panics.
func (b Bytes) Slice(r Range) Bytes {
	from, to := r.resolve(b.Len())
	if b.shared == nil {
		return Bytes{}
	}
	return Bytes{shared: b.shared.Clone(), from: b.from + from, to: b.from + to}
}

// RefCount returns the number of live views sharing the buffer.
func (b Bytes) RefCount() int64 {
	if b.shared == nil {
		return 0
	}
	return b.shared.RefCount()
}

// Equal reports whether two views hold the same bytes, whatever buffers
// back them.
func (b Bytes) Equal(other Bytes) bool {
	return bytes.Equal(b.Bytes(), other.Bytes())
}

// EqualBytes reports whether the view holds exactly p.
func (b Bytes) EqualBytes(p []byte) bool {
	return bytes.Equal(b.Bytes(), p)
}

// Hash hashes the viewed bytes; equal views hash alike.
func (b Bytes) Hash(seed maphash.Seed) uint64 {
	return maphash.Bytes(seed, b.Bytes())
}

// WriteTo implements io.WriterTo.
func (b Bytes) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes())
	return int64(n), err
}

// Release drops this view. The last release returns the buffer to its pool.
func (b Bytes) Release() {
	if b.shared != nil {
		b.shared.Release()
	}
}

// Released reports whether this view was released.
func (b Bytes) Released() bool {
	return b.shared == nil || b.shared.Released()
}
