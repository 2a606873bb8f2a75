package bytespool_test

import (
	"bytes"
	"hash/maphash"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/lendpool/pkg/bytespool"
	"github.com/ajitpratap0/lendpool/pkg/errors"
	"github.com/ajitpratap0/lendpool/pkg/pool"
	"github.com/ajitpratap0/lendpool/pkg/testutil"
)

func newTestPool(t *testing.T, opts ...bytespool.Option) *bytespool.BytesPool {
	t.Helper()
	opts = append([]bytespool.Option{
		bytespool.WithPoolOptions(pool.WithLogger[[]byte](testutil.TestLogger(t))),
	}, opts...)
	bp := bytespool.New(opts...)
	t.Cleanup(bp.Close)
	return bp
}

func requireValidationPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err := errors.FromPanic(r)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), "got %v", err)
	}()
	fn()
}

func lendFilled(bp *bytespool.BytesPool, data ...byte) *bytespool.BytesMut {
	buf := bp.Lend()
	buf.Append(data)
	return buf
}

func TestBytesPool_LendIsEmptyAndRecycled(t *testing.T) {
	bp := newTestPool(t, bytespool.WithCapacity(64))

	buf := bp.Lend()
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 64, buf.Cap())

	buf.WriteString("hello")
	first := &buf.Bytes()[0]
	buf.Release()

	again := bp.Lend()
	defer again.Release()
	assert.Equal(t, 0, again.Len(), "recycled buffer is truncated")
	assert.Equal(t, 64, again.Cap(), "recycled buffer keeps its capacity")
	again.WriteByte('x')
	assert.Same(t, first, &again.Bytes()[0], "same backing array")

	stats := bp.Stats()
	assert.Equal(t, uint64(1), stats.Allocated)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, "bytes", bp.Name())
}

func TestBytesMut_Writers(t *testing.T) {
	bp := newTestPool(t, bytespool.WithCapacity(4))
	buf := bp.Lend()
	defer buf.Release()

	n, err := buf.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, buf.WriteByte('c'))
	_, err = buf.WriteString("defgh")
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", string(buf.Bytes()))
	assert.GreaterOrEqual(t, buf.Cap(), 8)

	buf.Truncate(3)
	assert.Equal(t, "abc", string(buf.Value()))

	requireValidationPanic(t, func() { buf.Truncate(4) })
	requireValidationPanic(t, func() { buf.Truncate(-1) })

	buf.Reset()
	assert.Equal(t, 0, buf.Len())

	buf.Grow(100)
	assert.GreaterOrEqual(t, buf.Cap(), 100)
}

func TestBytesMut_ReadFrom(t *testing.T) {
	bp := newTestPool(t, bytespool.WithCapacity(0))
	buf := bp.Lend()
	defer buf.Release()

	payload := strings.Repeat("0123456789", 200)
	n, err := buf.ReadFrom(strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, string(buf.Bytes()))
}

func TestBytesMut_FreezeClipsCapacity(t *testing.T) {
	bp := newTestPool(t, bytespool.WithCapacity(1024))
	buf := lendFilled(bp, 1, 2, 3)

	frozen := buf.Freeze()
	assert.True(t, buf.Released(), "freeze consumes the buffer")
	assert.Equal(t, []byte{1, 2, 3}, frozen.Bytes())
	assert.Equal(t, 3, cap(frozen.Bytes()))
	frozen.Release()

	// The clipped buffer is what comes back from the pool.
	again := bp.Lend()
	defer again.Release()
	assert.Equal(t, 3, again.Cap())
}

func TestBytesMut_FreezeRange(t *testing.T) {
	tests := []struct {
		name string
		r    bytespool.Range
		want []byte
	}{
		{name: "..3", r: bytespool.To(3), want: []byte{0, 1, 2}},
		{name: "..=3", r: bytespool.ToInclusive(3), want: []byte{0, 1, 2, 3}},
		{name: "2..", r: bytespool.From(2), want: []byte{2, 3, 4}},
		{name: "2..4", r: bytespool.Span(2, 4), want: []byte{2, 3}},
		{name: "2..=4", r: bytespool.SpanInclusive(2, 4), want: []byte{2, 3, 4}},
		{name: "..", r: bytespool.Full(), want: []byte{0, 1, 2, 3, 4}},
		{name: "5..", r: bytespool.From(5), want: []byte{}},
		{name: "..5", r: bytespool.To(5), want: []byte{0, 1, 2, 3, 4}},
		{name: "(1..3", r: bytespool.Range{Start: bytespool.Excluded(1), End: bytespool.Excluded(3)}, want: []byte{2}},
		{name: "(-1..", r: bytespool.Range{Start: bytespool.Excluded(-1)}, want: []byte{0, 1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.r.String())

			bp := newTestPool(t)
			frozen := lendFilled(bp, 0, 1, 2, 3, 4).FreezeRange(tt.r)
			defer frozen.Release()

			assert.Equal(t, len(tt.want), frozen.Len())
			assert.True(t, frozen.EqualBytes(tt.want), "got %v", frozen.Bytes())
		})
	}
}

func TestBytesMut_FreezeRangeOutOfBounds(t *testing.T) {
	tests := []struct {
		name string
		r    bytespool.Range
	}{
		{name: "inclusive end at len", r: bytespool.SpanInclusive(2, 5)},
		{name: "exclusive end past len", r: bytespool.To(6)},
		{name: "start past len", r: bytespool.From(6)},
		{name: "excluded start at len", r: bytespool.Range{Start: bytespool.Excluded(5)}},
		{name: "negative start", r: bytespool.From(-1)},
		{name: "start after end", r: bytespool.Span(4, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bp := newTestPool(t)
			buf := lendFilled(bp, 0, 1, 2, 3, 4)
			defer buf.Release()

			requireValidationPanic(t, func() { buf.FreezeRange(tt.r) })
			assert.False(t, buf.Released(), "failed freeze leaves the buffer usable")
			assert.Equal(t, 5, buf.Len())
		})
	}
}

func TestBytes_SliceSharesBuffer(t *testing.T) {
	bp := newTestPool(t)
	frozen := lendFilled(bp, []byte("HEADER|payload")...).Freeze()

	header := frozen.Slice(bytespool.To(6))
	body := frozen.Slice(bytespool.From(7))
	tail := body.Slice(bytespool.From(3))

	assert.Equal(t, "HEADER", header.String())
	assert.Equal(t, "payload", body.String())
	assert.Equal(t, "load", tail.String())
	assert.Equal(t, int64(4), frozen.RefCount())
	assert.Same(t, &frozen.Bytes()[7], &body.Bytes()[0], "slices alias the frozen buffer")

	appended := append(header.Bytes(), '!')
	assert.Equal(t, "HEADER!", string(appended))
	assert.Equal(t, "HEADER|payload", frozen.String(), "append never writes into the shared buffer")

	requireValidationPanic(t, func() { body.Slice(bytespool.To(8)) })

	frozen.Release()
	header.Release()
	body.Release()
	assert.Equal(t, int64(1), tail.RefCount())
	assert.Equal(t, int64(1), bp.Stats().InUse)

	tail.Release()
	stats := bp.Stats()
	assert.Equal(t, int64(0), stats.InUse)
	assert.Equal(t, uint64(1), stats.Returned)
}

func TestBytes_ReleasedViewPanics(t *testing.T) {
	bp := newTestPool(t)
	frozen := lendFilled(bp, 1).Freeze()
	frozen.Release()
	frozen.Release()

	assert.True(t, frozen.Released())
	requireValidationPanic(t, func() { _ = frozen.Bytes() })
	requireValidationPanic(t, func() { _ = frozen.Clone() })
}

func TestBytes_ZeroValue(t *testing.T) {
	var b bytespool.Bytes
	assert.True(t, b.IsEmpty())
	assert.Nil(t, b.Bytes())
	assert.Equal(t, int64(0), b.RefCount())
	assert.True(t, b.Clone().IsEmpty())
	assert.True(t, b.Slice(bytespool.Full()).IsEmpty())
	b.Release()
	assert.True(t, b.Released())
}

func TestBytes_StructuralEquality(t *testing.T) {
	bp := newTestPool(t)
	a := lendFilled(bp, []byte("same")...).Freeze()
	defer a.Release()
	b := lendFilled(bp, []byte("xsamex")...).FreezeRange(bytespool.Span(1, 5))
	defer b.Release()
	c := bytespool.FromSlice([]byte("same"))
	defer c.Release()
	d := bytespool.FromSlice([]byte("diff"))
	defer d.Release()

	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(c))
	assert.False(t, a.Equal(d))

	seed := maphash.MakeSeed()
	assert.Equal(t, a.Hash(seed), b.Hash(seed))
	assert.Equal(t, a.Hash(seed), c.Hash(seed))

	assert.True(t, pool.EqualFunc[[]byte](a, b, bytes.Equal))
}

func TestBytes_WriteTo(t *testing.T) {
	frozen := bytespool.FromSlice([]byte("wire"))
	defer frozen.Release()

	tail := frozen.Slice(bytespool.From(1))
	defer tail.Release()

	var out bytes.Buffer
	n, err := tail.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "ire", out.String())
}

func TestBytes_CrossGoroutineRelease(t *testing.T) {
	bp := newTestPool(t)

	const views = 16
	frozen := lendFilled(bp, []byte("0123456789abcdef")...).Freeze()

	ch := make(chan bytespool.Bytes, views)
	for i := 0; i < views; i++ {
		ch <- frozen.Slice(bytespool.SpanInclusive(i, i))
	}
	close(ch)
	frozen.Release()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range ch {
				assert.Equal(t, 1, b.Len())
				b.Release()
			}
		}()
	}
	wg.Wait()

	stats := bp.Stats()
	assert.Equal(t, int64(0), stats.InUse)
	assert.Equal(t, int64(1), stats.Idle)
}

func TestBytesPool_CloneOutlivesOriginal(t *testing.T) {
	bp := bytespool.New(bytespool.WithName("clone"))
	clone := bp.Clone()
	buf := bp.Lend()
	bp.Close()

	buf.WriteString("late")
	frozen := buf.Freeze()
	frozen.Release()

	again := clone.Lend()
	assert.Equal(t, uint64(1), clone.Stats().Hits)
	again.Release()
	clone.Close()
	assert.Equal(t, "clone", clone.Name())
	assert.Equal(t, bytespool.DefaultCapacity, clone.Capacity())
}
