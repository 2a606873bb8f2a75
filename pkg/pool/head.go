package pool

import (
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/lendpool/pkg/errors"
	"github.com/ajitpratap0/lendpool/pkg/lockfree"
)

// The free-list top packs a 32-bit ABA tag above a 32-bit entry ref
// (index+1, 0 meaning empty). Every successful push or pop bumps the tag.
func pack(tag, ref uint32) uint64 { return uint64(tag)<<32 | uint64(ref) }
func tagOf(top uint64) uint32     { return uint32(top >> 32) }
func refOf(top uint64) uint32     { return uint32(top) }

// poolHead is the state shared by a pool and every handle lent from it.
// It stays alive while any holder remains and tears itself down when the
// last one releases.
type poolHead[T any] struct {
	top      atomic.Uint64
	detached atomic.Bool
	holders  atomic.Int64

	arena arena[T]

	name    string
	log     *zap.Logger
	dispose func(T)

	stats counters
}

type counters struct {
	allocated lockfree.AtomicCounter
	hits      lockfree.AtomicCounter
	misses    lockfree.AtomicCounter
	returned  lockfree.AtomicCounter
	discarded lockfree.AtomicCounter
	inUse     atomic.Int64
	idle      atomic.Int64
}

func newHead[T any](o options[T]) *poolHead[T] {
	h := &poolHead[T]{
		name:    o.name,
		log:     o.logger,
		dispose: o.dispose,
	}
	h.holders.Store(1)
	return h
}

// newDetachedHead returns a head that never accepts entries back. It backs
// standalone handles created by NewDetached.
func newDetachedHead[T any]() *poolHead[T] {
	h := &poolHead[T]{log: zap.NewNop()}
	h.detached.Store(true)
	h.holders.Store(1)
	return h
}

// push hands an entry back to the free list. If the head is detached the
// entry is discarded instead and push reports false.
func (h *poolHead[T]) push(index uint32, e *entry[T]) bool {
	ref := index + 1
	for {
		if h.detached.Load() {
			h.discard(e)
			return false
		}
		top := h.top.Load()
		e.next.Store(refOf(top))
		if h.top.CompareAndSwap(top, pack(tagOf(top)+1, ref)) {
			h.stats.returned.Increment()
			h.stats.idle.Add(1)
			return true
		}
		runtime.Gosched()
	}
}

// pop takes the most recently pushed entry off the free list.
func (h *poolHead[T]) pop() (uint32, *entry[T], bool) {
	for {
		top := h.top.Load()
		ref := refOf(top)
		if ref == 0 {
			return 0, nil, false
		}
		e := h.arena.at(ref - 1)
		next := e.next.Load()
		if h.top.CompareAndSwap(top, pack(tagOf(top)+1, next)) {
			e.next.Store(0)
			h.stats.idle.Add(-1)
			return ref - 1, e, true
		}
		runtime.Gosched()
	}
}

// discard drops an entry's value for good.
func (h *poolHead[T]) discard(e *entry[T]) {
	if h.dispose != nil {
		h.dispose(e.value)
	}
	var zero T
	e.value = zero
	h.stats.discarded.Increment()
}

func (h *poolHead[T]) retain() {
	h.holders.Add(1)
}

func (h *poolHead[T]) release() {
	switch n := h.holders.Add(-1); {
	case n == 0:
		h.teardown()
	case n < 0:
		panic(errors.New(errors.ErrorTypeInternal, "pool head released more times than retained").
			WithDetail("pool", h.name).
			WithDetail("holders", n))
	}
}

// teardown closes the free list to new pushes, then drains it. A push that
// checked detached just before the flag flipped can still land an entry, so
// the drain runs until the list reads empty after the flag is set.
func (h *poolHead[T]) teardown() {
	h.detached.Store(true)

	drained := 0
	for {
		_, e, ok := h.pop()
		if !ok {
			break
		}
		h.discard(e)
		drained++
	}

	h.log.Debug("pool torn down",
		zap.String("pool", h.name),
		zap.Int("drained", drained),
		zap.Uint64("entries", h.arena.len()))
}

func (h *poolHead[T]) snapshot() Stats {
	return Stats{
		Allocated: h.stats.allocated.Get(),
		Hits:      h.stats.hits.Get(),
		Misses:    h.stats.misses.Get(),
		Returned:  h.stats.returned.Get(),
		Discarded: h.stats.discarded.Get(),
		InUse:     h.stats.inUse.Load(),
		Idle:      h.stats.idle.Load(),
	}
}
