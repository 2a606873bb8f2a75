// Package lendpool provides a thread-safe object-recycling pool for Go.
//
// Values are lent out of a pool as exclusively owned handles and go back to
// a lock-free free list when released, so hot paths reuse buffers instead of
// allocating new ones. Byte buffers get a dedicated layer on top: a lent
// buffer is filled in place, frozen into an immutable reference-counted view,
// split into sub-views without copying and handed to other goroutines.
//
// # Architecture
//
// The module is layered bottom-up:
//
// 1. pkg/pool: the generic Pool[T]. A Treiber stack over an index arena keeps
// the free list lock-free; a tagged head word prevents ABA. Lend returns a
// Unique[T] handle, and Unique.Freeze turns it into a Shared[T] whose last
// release recycles the value.
//
// 2. pkg/bytespool: BytesPool lends BytesMut buffers. Freeze and FreezeRange
// produce Bytes views that compare and hash by content.
//
// 3. pkg/compression: codecs that compress straight into pooled buffers.
// Stateful encoders and decoders are themselves recycled through Pool.
//
// 4. internal/stress and cmd/poolbench: a concurrent stress runner that
// lends, fills, freezes and releases buffers across goroutines and checks
// every payload on the way out.
//
// # Quick Start
//
//	import "github.com/ajitpratap0/lendpool/pkg/bytespool"
//
//	bp := bytespool.New(bytespool.WithCapacity(4096))
//	defer bp.Close()
//
//	buf := bp.Lend()
//	buf.WriteString("HEADER|payload")
//	frame := buf.Freeze()
//	defer frame.Release()
//
//	body := frame.Slice(bytespool.From(7))
//	go func() {
//	    defer body.Release()
//	    process(body.Bytes())
//	}()
//
// # Ownership Rules
//
// A released handle or view must not be used again; doing so panics with an
// *errors.Error of type validation. Releasing twice is a no-op. Closing a
// pool never invalidates outstanding handles. The free list is drained once
// every clone is closed and every outstanding handle released.
//
// # Benchmarking
//
//	go run ./cmd/poolbench run --workers 8 --iterations 100000 --handoff --codec zstd
//	go run ./cmd/poolbench config init poolbench.yaml
//
// Configuration comes from an optional YAML file, POOLBENCH_* environment
// variables and flags, in increasing precedence.
package lendpool
