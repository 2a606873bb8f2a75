package pool

import (
	"math"
	"math/bits"
	"sync/atomic"

	"github.com/ajitpratap0/lendpool/pkg/errors"
)

const (
	// Segment k holds firstSegmentSize<<k entries.
	firstSegmentShift = 5
	firstSegmentSize  = 1 << firstSegmentShift

	// 32 * (2^28 - 1) entries covers every index representable as a uint32 ref.
	maxSegments = 28

	// Index math.MaxUint32 is reserved: refs are index+1 and must fit in 32 bits.
	maxEntries = math.MaxUint32
)

// entry is one node of the free list: a recyclable value plus the ref of the
// next free entry. While an entry is lent out, next is zero and only the
// owning handle touches value.
type entry[T any] struct {
	value T
	next  atomic.Uint32 // index+1 of the next free entry, 0 ends the list
}

// arena owns every entry ever created for a pool. Segments are allocated on
// demand and never move, so entry pointers stay valid for the arena's life
// and the free list can address entries by index instead of by pointer.
type arena[T any] struct {
	segments [maxSegments]atomic.Pointer[[]entry[T]]
	size     atomic.Uint64
}

// locate maps an entry index to its segment and offset within the segment.
func locate(index uint32) (segment int, offset uint64) {
	n := uint64(index)>>firstSegmentShift + 1
	segment = bits.Len64(n) - 1
	offset = uint64(index) - (uint64(1)<<segment-1)<<firstSegmentShift
	return segment, offset
}

// alloc reserves a fresh entry. The caller owns it exclusively.
func (a *arena[T]) alloc() (uint32, *entry[T]) {
	n := a.size.Add(1) - 1
	if n >= maxEntries {
		panic(errors.New(errors.ErrorTypeInternal, "pool arena exhausted").
			WithDetail("entries", n))
	}
	index := uint32(n)
	segment, offset := locate(index)

	s := a.segments[segment].Load()
	if s == nil {
		fresh := make([]entry[T], firstSegmentSize<<segment)
		if a.segments[segment].CompareAndSwap(nil, &fresh) {
			s = &fresh
		} else {
			s = a.segments[segment].Load()
		}
	}
	return index, &(*s)[offset]
}

// at returns the entry for an index previously handed out by alloc.
func (a *arena[T]) at(index uint32) *entry[T] {
	segment, offset := locate(index)
	return &(*a.segments[segment].Load())[offset]
}

// len reports how many entries have been allocated.
func (a *arena[T]) len() uint64 {
	return a.size.Load()
}
