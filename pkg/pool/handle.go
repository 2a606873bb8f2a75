package pool

import (
	"hash/maphash"
	"sync/atomic"

	"github.com/ajitpratap0/lendpool/pkg/errors"
)

// cell binds one entry to the head it returns to.
type cell[T any] struct {
	head  *poolHead[T]
	entry *entry[T]
	index uint32
}

// release returns the entry, or discards it if the head is detached, and
// then drops this cell's hold on the head.
func (c cell[T]) release() {
	h := c.head
	h.stats.inUse.Add(-1)
	h.push(c.index, c.entry)
	h.release()
}

// Reader is the read access common to Unique and Shared.
type Reader[T any] interface {
	Value() T
}

// Unique is an exclusively owned value lent from a Pool. It may be handed to
// another goroutine, but only one goroutine may use it at a time.
//
// Release returns the value to its pool. Freeze turns it into a Shared.
// Using a Unique after either is a programming error and panics.
type Unique[T any] struct {
	cell cell[T]
}

// NewDetached wraps a standalone value that is never recycled: releasing the
// handle just drops the value.
func NewDetached[T any](value T) *Unique[T] {
	e := &entry[T]{value: value}
	return &Unique[T]{cell: cell[T]{head: newDetachedHead[T](), entry: e}}
}

// Get returns a pointer to the value for reading and writing. The pointer
// must not be kept past Release or Freeze.
func (u *Unique[T]) Get() *T {
	u.mustLive("Get")
	return &u.cell.entry.value
}

// Value returns a copy of the value.
func (u *Unique[T]) Value() T {
	u.mustLive("Value")
	return u.cell.entry.value
}

// Set replaces the value.
func (u *Unique[T]) Set(value T) {
	u.mustLive("Set")
	u.cell.entry.value = value
}

// Freeze consumes the Unique and returns a read-only Shared with a reference
// count of one that owns the same entry.
func (u *Unique[T]) Freeze() *Shared[T] {
	u.mustLive("Freeze")
	c := &sharedCell[T]{cell: u.cell}
	c.refs.Store(1)
	u.cell = cell[T]{}
	return &Shared[T]{shared: c}
}

// Release returns the value to its pool. Releasing twice is a no-op.
func (u *Unique[T]) Release() {
	if u.cell.entry == nil {
		return
	}
	c := u.cell
	u.cell = cell[T]{}
	c.release()
}

// Released reports whether the handle was released or frozen.
func (u *Unique[T]) Released() bool {
	return u.cell.entry == nil
}

func (u *Unique[T]) mustLive(op string) {
	if u.cell.entry == nil {
		panic(errors.New(errors.ErrorTypeValidation, "use of released unique handle").
			WithDetail("op", op))
	}
}

type sharedCell[T any] struct {
	refs atomic.Int64
	cell cell[T]
}

// Shared is a reference-counted, read-only view of a value lent from a Pool.
// Clones alias the same value; the value goes back to the pool when the last
// clone is released. Clones may be read from many goroutines at once.
//
// Copying a Shared struct does not add a reference; use Clone.
type Shared[T any] struct {
	shared   *sharedCell[T]
	released atomic.Bool
}

// Value returns the value. Callers must treat it as read-only, including
// anything it points to.
func (s *Shared[T]) Value() T {
	s.mustLive("Value")
	return s.shared.cell.entry.value
}

// Clone returns another handle to the same value and bumps the reference count.
func (s *Shared[T]) Clone() *Shared[T] {
	s.mustLive("Clone")
	s.shared.refs.Add(1)
	return &Shared[T]{shared: s.shared}
}

// RefCount returns the number of live handles to the value.
func (s *Shared[T]) RefCount() int64 {
	return s.shared.refs.Load()
}

// Release drops this handle. The last release returns the value to its pool.
// Releasing the same handle twice is a no-op.
func (s *Shared[T]) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	if s.shared.refs.Add(-1) == 0 {
		s.shared.cell.release()
	}
}

// Released reports whether this handle was released.
func (s *Shared[T]) Released() bool {
	return s.released.Load()
}

func (s *Shared[T]) mustLive(op string) {
	if s.released.Load() {
		panic(errors.New(errors.ErrorTypeValidation, "use of released shared handle").
			WithDetail("op", op))
	}
}

// Equal reports whether two handles hold equal values.
func Equal[T comparable](a, b Reader[T]) bool {
	return a.Value() == b.Value()
}

// EqualValue reports whether a handle holds v.
func EqualValue[T comparable](a Reader[T], v T) bool {
	return a.Value() == v
}

// EqualFunc compares the values of two handles with eq.
func EqualFunc[T any](a, b Reader[T], eq func(T, T) bool) bool {
	return eq(a.Value(), b.Value())
}

// Hash hashes the value held by a handle, so equal values hash alike
// regardless of which entry holds them.
func Hash[T comparable](seed maphash.Seed, r Reader[T]) uint64 {
	return maphash.Comparable(seed, r.Value())
}
