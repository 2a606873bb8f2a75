package compression

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/lendpool/pkg/bytespool"
	"github.com/ajitpratap0/lendpool/pkg/pool"
)

// streamCodec drives a stateful stream encoder and decoder. Both are
// expensive to build, so they are lent from pools and reset per use.
type streamCodec[W io.WriteCloser, R io.Reader] struct {
	baseCodec
	writers     *pool.Pool[W]
	readers     *pool.Pool[R]
	newWriter   func() W
	newReader   func() R
	resetWriter func(W, io.Writer)
	resetReader func(R, io.Reader) error
}

func (c *streamCodec[W, R]) Compress(dst *bytespool.BytesMut, src []byte) error {
	return c.CompressStream(dst, bytes.NewReader(src))
}

func (c *streamCodec[W, R]) Decompress(dst *bytespool.BytesMut, src []byte) error {
	return c.DecompressStream(dst, bytes.NewReader(src))
}

func (c *streamCodec[W, R]) CompressStream(dst io.Writer, src io.Reader) error {
	lent := c.writers.Lend(c.newWriter)
	defer lent.Release()

	w := lent.Value()
	c.resetWriter(w, dst)
	if _, err := io.Copy(w, src); err != nil {
		return c.fail(err, "compress")
	}
	return c.fail(w.Close(), "compress")
}

func (c *streamCodec[W, R]) DecompressStream(dst io.Writer, src io.Reader) error {
	lent := c.readers.Lend(c.newReader)
	defer lent.Release()

	r := lent.Value()
	if err := c.resetReader(r, src); err != nil {
		return c.fail(err, "decompress")
	}
	return c.copyLimited(dst, r)
}

func (c *streamCodec[W, R]) Close() {
	c.writers.Close()
	c.readers.Close()
}

func streamPools[W io.WriteCloser, R io.Reader](base baseCodec, disposeW func(W), disposeR func(R)) (*pool.Pool[W], *pool.Pool[R]) {
	name := "compression." + string(base.algorithm)
	wopts := []pool.Option[W]{pool.WithName[W](name + ".writers")}
	if disposeW != nil {
		wopts = append(wopts, pool.WithDispose(disposeW))
	}
	ropts := []pool.Option[R]{pool.WithName[R](name + ".readers")}
	if disposeR != nil {
		ropts = append(ropts, pool.WithDispose(disposeR))
	}
	return pool.New(wopts...), pool.New(ropts...)
}

func newGzipCodec(base baseCodec) *streamCodec[*gzip.Writer, *gzip.Reader] {
	level := mapGzipLevel(base.level)
	writers, readers := streamPools[*gzip.Writer, *gzip.Reader](base, nil, nil)
	return &streamCodec[*gzip.Writer, *gzip.Reader]{
		baseCodec: base,
		writers:   writers,
		readers:   readers,
		newWriter: func() *gzip.Writer {
			w, _ := gzip.NewWriterLevel(nil, level)
			return w
		},
		newReader:   func() *gzip.Reader { return new(gzip.Reader) },
		resetWriter: func(w *gzip.Writer, dst io.Writer) { w.Reset(dst) },
		resetReader: func(r *gzip.Reader, src io.Reader) error { return r.Reset(src) },
	}
}

func newDeflateCodec(base baseCodec) *streamCodec[*flate.Writer, io.ReadCloser] {
	level := mapDeflateLevel(base.level)
	writers, readers := streamPools[*flate.Writer, io.ReadCloser](base, nil, nil)
	return &streamCodec[*flate.Writer, io.ReadCloser]{
		baseCodec: base,
		writers:   writers,
		readers:   readers,
		newWriter: func() *flate.Writer {
			w, _ := flate.NewWriter(nil, level)
			return w
		},
		newReader:   func() io.ReadCloser { return flate.NewReader(bytes.NewReader(nil)) },
		resetWriter: func(w *flate.Writer, dst io.Writer) { w.Reset(dst) },
		resetReader: func(r io.ReadCloser, src io.Reader) error {
			return r.(flate.Resetter).Reset(src, nil)
		},
	}
}

func newLZ4Codec(base baseCodec) *streamCodec[*lz4.Writer, *lz4.Reader] {
	level := mapLZ4Level(base.level)
	writers, readers := streamPools[*lz4.Writer, *lz4.Reader](base, nil, nil)
	return &streamCodec[*lz4.Writer, *lz4.Reader]{
		baseCodec: base,
		writers:   writers,
		readers:   readers,
		newWriter: func() *lz4.Writer {
			w := lz4.NewWriter(nil)
			_ = w.Apply(lz4.CompressionLevelOption(level))
			return w
		},
		newReader:   func() *lz4.Reader { return lz4.NewReader(nil) },
		resetWriter: func(w *lz4.Writer, dst io.Writer) { w.Reset(dst) },
		resetReader: func(r *lz4.Reader, src io.Reader) error {
			r.Reset(src)
			return nil
		},
	}
}

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}
