// Package bytespool specializes the recycling pool for byte buffers.
//
// A BytesPool lends BytesMut buffers that start empty but keep the capacity
// they grew to in earlier use. Freezing a BytesMut yields Bytes: an
// immutable, reference-counted view that can be cloned, sliced into
// sub-ranges without copying, and handed to other goroutines. The buffer goes
// back to the pool when the last view is released.
//
// Example:
//
//	bp := bytespool.New(bytespool.WithCapacity(4096))
//	defer bp.Close()
//
//	buf := bp.Lend()
//	buf.WriteString("HEADER|payload")
//	frame := buf.Freeze()
//	defer frame.Release()
//
//	header := frame.Slice(bytespool.To(6))
//	defer header.Release()
package bytespool

import (
	"github.com/ajitpratap0/lendpool/pkg/pool"
)

// DefaultCapacity is the initial capacity of buffers built by a BytesPool.
const DefaultCapacity = 4096

// BytesPool is a pool of byte buffers. It is safe for concurrent use.
type BytesPool struct {
	pool     *pool.Pool[[]byte]
	capacity int
	factory  func() []byte
}

// Option configures a BytesPool.
type Option func(*settings)

type settings struct {
	capacity int
	name     string
	opts     []pool.Option[[]byte]
}

// WithCapacity sets the initial capacity of newly built buffers.
func WithCapacity(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.capacity = n
		}
	}
}

// WithName sets the pool name used in logs and metrics.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithPoolOptions passes options through to the underlying pool.
func WithPoolOptions(opts ...pool.Option[[]byte]) Option {
	return func(s *settings) {
		s.opts = append(s.opts, opts...)
	}
}

// New creates an empty BytesPool.
func New(opts ...Option) *BytesPool {
	s := settings{capacity: DefaultCapacity, name: "bytes"}
	for _, opt := range opts {
		opt(&s)
	}

	poolOpts := append([]pool.Option[[]byte]{pool.WithName[[]byte](s.name)}, s.opts...)
	capacity := s.capacity
	return &BytesPool{
		pool:     pool.New(poolOpts...),
		capacity: capacity,
		factory:  func() []byte { return make([]byte, 0, capacity) },
	}
}

// Lend returns an empty buffer. Recycled buffers are truncated to length
// zero and keep their capacity.
func (p *BytesPool) Lend() *BytesMut {
	u := p.pool.Lend(p.factory)
	buf := u.Get()
	*buf = (*buf)[:0]
	return &BytesMut{u: u}
}

// Clone returns another BytesPool sharing this pool's free list.
func (p *BytesPool) Clone() *BytesPool {
	return &BytesPool{pool: p.pool.Clone(), capacity: p.capacity, factory: p.factory}
}

// Close gives up this value's hold on the free list. Outstanding buffers stay
// valid.
func (p *BytesPool) Close() {
	p.pool.Close()
}

// Name returns the pool name.
func (p *BytesPool) Name() string {
	return p.pool.Name()
}

// Stats returns a snapshot of the pool counters.
func (p *BytesPool) Stats() pool.Stats {
	return p.pool.Stats()
}

// Capacity returns the initial capacity of newly built buffers.
func (p *BytesPool) Capacity() int {
	return p.capacity
}
