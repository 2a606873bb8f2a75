package compression

import (
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/ajitpratap0/lendpool/pkg/bytespool"
	"github.com/ajitpratap0/lendpool/pkg/errors"
)

// Block codecs encode a whole payload in one call straight into the spare
// capacity of the destination buffer. Their stream forms go through the
// pooled streamCodec.

type snappyCodec struct {
	*streamCodec[*snappy.Writer, *snappy.Reader]
}

func newSnappyCodec(base baseCodec) *snappyCodec {
	writers, readers := streamPools[*snappy.Writer, *snappy.Reader](base, nil, nil)
	return &snappyCodec{&streamCodec[*snappy.Writer, *snappy.Reader]{
		baseCodec:   base,
		writers:     writers,
		readers:     readers,
		newWriter:   func() *snappy.Writer { return snappy.NewBufferedWriter(nil) },
		newReader:   func() *snappy.Reader { return snappy.NewReader(nil) },
		resetWriter: func(w *snappy.Writer, dst io.Writer) { w.Reset(dst) },
		resetReader: func(r *snappy.Reader, src io.Reader) error {
			r.Reset(src)
			return nil
		},
	}}
}

func (c *snappyCodec) Compress(dst *bytespool.BytesMut, src []byte) error {
	n := snappy.MaxEncodedLen(len(src))
	if n < 0 {
		return tooLargeToEncode(c.algorithm, len(src))
	}
	dst.Grow(n)
	dst.Append(snappy.Encode(dst.AvailableBuffer()[:n], src))
	return nil
}

func (c *snappyCodec) Decompress(dst *bytespool.BytesMut, src []byte) error {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return c.fail(err, "decompress")
	}
	if c.maxSize > 0 && int64(n) > c.maxSize {
		return c.tooLarge()
	}
	dst.Grow(n)
	out, err := snappy.Decode(dst.AvailableBuffer()[:n], src)
	if err != nil {
		return c.fail(err, "decompress")
	}
	dst.Append(out)
	return nil
}

type s2Codec struct {
	*streamCodec[*s2.Writer, *s2.Reader]
	encode func(dst, src []byte) []byte
}

func newS2Codec(base baseCodec) *s2Codec {
	var (
		encode = s2.Encode
		wopts  []s2.WriterOption
	)
	switch base.level {
	case Better:
		encode = s2.EncodeBetter
		wopts = append(wopts, s2.WriterBetterCompression())
	case Best:
		encode = s2.EncodeBest
		wopts = append(wopts, s2.WriterBestCompression())
	}

	writers, readers := streamPools[*s2.Writer, *s2.Reader](base, nil, nil)
	return &s2Codec{
		streamCodec: &streamCodec[*s2.Writer, *s2.Reader]{
			baseCodec:   base,
			writers:     writers,
			readers:     readers,
			newWriter:   func() *s2.Writer { return s2.NewWriter(nil, wopts...) },
			newReader:   func() *s2.Reader { return s2.NewReader(nil) },
			resetWriter: func(w *s2.Writer, dst io.Writer) { w.Reset(dst) },
			resetReader: func(r *s2.Reader, src io.Reader) error {
				r.Reset(src)
				return nil
			},
		},
		encode: encode,
	}
}

func (c *s2Codec) Compress(dst *bytespool.BytesMut, src []byte) error {
	n := s2.MaxEncodedLen(len(src))
	if n < 0 {
		return tooLargeToEncode(c.algorithm, len(src))
	}
	dst.Grow(n)
	dst.Append(c.encode(dst.AvailableBuffer()[:n], src))
	return nil
}

func (c *s2Codec) Decompress(dst *bytespool.BytesMut, src []byte) error {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return c.fail(err, "decompress")
	}
	if c.maxSize > 0 && int64(n) > c.maxSize {
		return c.tooLarge()
	}
	dst.Grow(n)
	out, err := s2.Decode(dst.AvailableBuffer()[:n], src)
	if err != nil {
		return c.fail(err, "decompress")
	}
	dst.Append(out)
	return nil
}

// zstdCodec shares one encoder and one decoder for whole-payload calls;
// EncodeAll and DecodeAll are safe for concurrent use. Streams lend their
// own encoder or decoder.
type zstdCodec struct {
	*streamCodec[*zstd.Encoder, *zstd.Decoder]
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCodec(base baseCodec) (*zstdCodec, error) {
	level := mapZstdLevel(base.level)
	decOpts := []zstd.DOption{zstd.WithDecoderConcurrency(0)}
	streamDecOpts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if base.maxSize > 0 {
		decOpts = append(decOpts, zstd.WithDecoderMaxMemory(uint64(base.maxSize)))
		streamDecOpts = append(streamDecOpts, zstd.WithDecoderMaxMemory(uint64(base.maxSize)))
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create zstd encoder")
	}
	dec, err := zstd.NewReader(nil, decOpts...)
	if err != nil {
		_ = enc.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create zstd decoder")
	}

	writers, readers := streamPools[*zstd.Encoder, *zstd.Decoder](base,
		func(e *zstd.Encoder) {
			// detach from the last destination before the final flush
			e.Reset(io.Discard)
			_ = e.Close()
		},
		func(d *zstd.Decoder) { d.Close() },
	)
	return &zstdCodec{
		streamCodec: &streamCodec[*zstd.Encoder, *zstd.Decoder]{
			baseCodec: base,
			writers:   writers,
			readers:   readers,
			newWriter: func() *zstd.Encoder {
				e, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
				return e
			},
			newReader: func() *zstd.Decoder {
				d, _ := zstd.NewReader(nil, streamDecOpts...)
				return d
			},
			resetWriter: func(e *zstd.Encoder, dst io.Writer) { e.Reset(dst) },
			resetReader: func(d *zstd.Decoder, src io.Reader) error { return d.Reset(src) },
		},
		enc: enc,
		dec: dec,
	}, nil
}

func (c *zstdCodec) Compress(dst *bytespool.BytesMut, src []byte) error {
	dst.Append(c.enc.EncodeAll(src, dst.AvailableBuffer()))
	return nil
}

func (c *zstdCodec) Decompress(dst *bytespool.BytesMut, src []byte) error {
	out, err := c.dec.DecodeAll(src, dst.AvailableBuffer())
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
			return c.tooLarge()
		}
		return c.fail(err, "decompress")
	}
	if c.maxSize > 0 && int64(len(out)) > c.maxSize {
		return c.tooLarge()
	}
	dst.Append(out)
	return nil
}

func (c *zstdCodec) Close() {
	c.streamCodec.Close()
	_ = c.enc.Close()
	c.dec.Close()
}

func tooLargeToEncode(a Algorithm, n int) error {
	return errors.New(errors.ErrorTypeData, "payload too large to encode").
		WithDetail("algorithm", string(a)).
		WithDetail("size", n)
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
