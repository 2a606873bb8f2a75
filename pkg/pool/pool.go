package pool

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/lendpool/pkg/errors"
	"github.com/ajitpratap0/lendpool/pkg/logger"
)

// Pool lends values of type T and takes them back when their handles are
// released. Released values go onto a lock-free free list and are handed out
// again, as last used, by later Lend calls.
//
// A Pool is safe for concurrent use. Clones share one free list. The backing
// state outlives every Pool value and is torn down only when the last Pool
// clone is closed and the last outstanding handle is released, in any order.
type Pool[T any] struct {
	head   *poolHead[T]
	closed atomic.Bool
}

// Option configures a Pool.
type Option[T any] func(*options[T])

type options[T any] struct {
	name    string
	logger  *zap.Logger
	dispose func(T)
}

// WithName sets the pool name used in logs and metrics.
func WithName[T any](name string) Option[T] {
	return func(o *options[T]) {
		o.name = name
	}
}

// WithLogger sets the logger for pool lifecycle events.
func WithLogger[T any](l *zap.Logger) Option[T] {
	return func(o *options[T]) {
		o.logger = l
	}
}

// WithDispose registers a function that runs on every value the pool drops
// instead of recycling: values drained at teardown and values returned after
// the pool was detached.
func WithDispose[T any](fn func(T)) Option[T] {
	return func(o *options[T]) {
		o.dispose = fn
	}
}

// New creates an empty pool.
//
// Example:
//
//	p := pool.New[*Conn](pool.WithName[*Conn]("conns"))
//	defer p.Close()
//
//	c := p.Lend(func() *Conn { return dial() })
//	defer c.Release()
func New[T any](opts ...Option[T]) *Pool[T] {
	o := options[T]{name: "default"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("pool")
	}

	p := &Pool[T]{head: newHead(o)}
	o.logger.Debug("pool created", zap.String("pool", o.name))
	return p
}

// Lend returns a handle to a recycled value if the free list has one, or to
// a new value built by factory otherwise. A recycled value is returned
// exactly as it was last used; resetting it is the caller's job. factory runs
// at most once, and only when the free list was observed empty.
//
// Lend panics if the pool was closed.
func (p *Pool[T]) Lend(factory func() T) *Unique[T] {
	if p.closed.Load() {
		panic(errors.New(errors.ErrorTypeValidation, "lend on closed pool").
			WithDetail("pool", p.head.name))
	}

	h := p.head
	h.retain()
	if index, e, ok := h.pop(); ok {
		h.stats.hits.Increment()
		h.stats.inUse.Add(1)
		return &Unique[T]{cell: cell[T]{head: h, entry: e, index: index}}
	}

	h.stats.misses.Increment()
	return p.build(factory)
}

func (p *Pool[T]) build(factory func() T) *Unique[T] {
	h := p.head
	built := false
	defer func() {
		if !built {
			// factory panicked; give back the hold taken by Lend
			h.release()
		}
	}()

	value := factory()
	index, e := h.arena.alloc()
	e.value = value
	built = true

	h.stats.allocated.Increment()
	h.stats.inUse.Add(1)
	return &Unique[T]{cell: cell[T]{head: h, entry: e, index: index}}
}

// Clone returns another Pool sharing this pool's free list.
func (p *Pool[T]) Clone() *Pool[T] {
	if p.closed.Load() {
		panic(errors.New(errors.ErrorTypeValidation, "clone of closed pool").
			WithDetail("pool", p.head.name))
	}
	p.head.retain()
	return &Pool[T]{head: p.head}
}

// Close gives up this Pool value's hold on the shared free list. Outstanding
// handles stay valid; once the last of them and the last clone are gone the
// free list is drained. Close is idempotent and must not race with Lend on
// the same Pool value.
func (p *Pool[T]) Close() {
	if p.closed.CompareAndSwap(false, true) {
		p.head.release()
	}
}

// Name returns the pool name.
func (p *Pool[T]) Name() string {
	return p.head.name
}

// Stats returns a snapshot of the pool counters. The snapshot stays readable
// after Close.
func (p *Pool[T]) Stats() Stats {
	return p.head.snapshot()
}

// Stats holds pool statistics for monitoring and tuning.
type Stats struct {
	// Allocated is the number of values built by a factory
	Allocated uint64 `json:"allocated"`
	// Hits is the number of lends served from the free list
	Hits uint64 `json:"hits"`
	// Misses is the number of lends that found the free list empty
	Misses uint64 `json:"misses"`
	// Returned is the number of entries pushed back onto the free list
	Returned uint64 `json:"returned"`
	// Discarded is the number of values dropped instead of recycled
	Discarded uint64 `json:"discarded"`
	// InUse is the number of lent values not yet returned
	InUse int64 `json:"in_use"`
	// Idle approximates the free-list length
	Idle int64 `json:"idle"`
}

// HitRate returns the fraction of lends served from the free list.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
