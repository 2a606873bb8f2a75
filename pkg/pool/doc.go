// Package pool implements a generic, thread-safe object-recycling pool. It lets
// many goroutines borrow values of type T, use them exclusively or shared, and
// hand them back for reuse, avoiding reallocation in high-churn workloads such
// as per-connection buffers in network servers.
//
// # Architecture
//
// A Pool is a thin handle over a shared head. The head holds a lock-free
// free list of entries, a detached flag and a holder count:
//
//   - Entries live in a segmented arena and are addressed by index. Segments
//     never move, so a lent value stays put for its whole life.
//   - The free list is a Treiber stack whose top packs an ABA tag with the
//     index of the first free entry. Push and pop are compare-and-swap loops;
//     nothing ever blocks.
//   - Every Pool clone and every outstanding handle holds the head. The last
//     holder to let go detaches the head and drains the free list, so handles
//     may be released safely after the Pool itself was closed.
//
// # Ownership
//
// Lend returns a *Unique: exclusive, mutable, not cloneable. Freeze turns a
// Unique into a *Shared: read-only and reference counted. Both route release
// through the same path, which pushes the entry back onto the free list (or
// drops it if the head is detached).
//
// # Usage Patterns
//
// Release is explicit. Defer it right after acquisition:
//
//	p := pool.New[[]int]()
//	defer p.Close()
//
//	u := p.Lend(func() []int { return make([]int, 0, 64) })
//	defer u.Release()
//
//	*u.Get() = append((*u.Get())[:0], 1, 2, 3)
//
// Sharing a frozen value between goroutines:
//
//	s := u.Freeze()
//	go func(s *pool.Shared[[]int]) {
//		defer s.Release()
//		consume(s.Value())
//	}(s.Clone())
//	s.Release()
//
// Recycled values come back exactly as last used; resetting them is the
// caller's job (the bytespool package does it for byte buffers).
//
// # Contract Violations
//
// Using a handle after Release or Freeze, and lending from a closed Pool, are
// programming errors. They panic with an *errors.Error of type validation.
// Nothing on the lend or release path returns an error.
//
// # Metrics
//
// Stats exposes allocation, hit/miss, return, discard, in-use and idle
// counters; the metrics package exports them to Prometheus and OpenTelemetry.
package pool
