// Package compression compresses into and out of pooled byte buffers.
//
// # Overview
//
// The compression package provides:
//   - Multiple compression algorithms (Gzip, Snappy, LZ4, Zstd, S2, Deflate)
//   - Configurable compression levels (Fastest, Default, Better, Best)
//   - Codecs that append their output to a lent bytespool.BytesMut
//   - Stream writers and readers recycled through pool.Pool
//   - Pack and Unpack, which lend, transform and freeze in one call
//
// # Algorithm Selection
//
// Choose algorithms based on your requirements:
//   - Snappy/S2: Best for speed, moderate compression
//   - LZ4: Extremely fast, decent compression
//   - Zstd: Best compression ratio, good speed
//   - Gzip: Wide compatibility, good compression
//   - Deflate: Standard algorithm, wide support
//
// # Basic Usage
//
//	codec, err := compression.NewCodec(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Default,
//	})
//	if err != nil {
//	    return err
//	}
//	defer codec.Close()
//
//	frame, err := compression.Pack(bp, codec, payload)
//	if err != nil {
//	    return err
//	}
//	defer frame.Release()
package compression

import (
	"io"
	"strings"

	"github.com/ajitpratap0/lendpool/pkg/bytespool"
	"github.com/ajitpratap0/lendpool/pkg/errors"
)

// Algorithm represents a compression algorithm.
// Each algorithm has different trade-offs between speed and compression ratio.
type Algorithm string

const (
	// None copies data unchanged
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}

// ParseAlgorithm maps a name such as "zstd" to its Algorithm. Matching is
// case-insensitive and the empty string means None.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return None, nil
	}
	for _, a := range Algorithms {
		if string(a) == name {
			return a, nil
		}
	}
	return "", errors.New(errors.ErrorTypeConfig, "unsupported compression algorithm").
		WithDetail("algorithm", name)
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// Codec compresses and decompresses by appending to a pooled buffer.
// All implementations are safe for concurrent use.
type Codec interface {
	// Compress appends the compressed form of src to dst.
	Compress(dst *bytespool.BytesMut, src []byte) error

	// Decompress appends the decompressed form of src to dst.
	Decompress(dst *bytespool.BytesMut, src []byte) error

	// CompressStream compresses from reader to writer.
	CompressStream(dst io.Writer, src io.Reader) error

	// DecompressStream decompresses from reader to writer.
	DecompressStream(dst io.Writer, src io.Reader) error

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level

	// Close drops the pooled stream writers and readers.
	Close()
}

// Config represents codec configuration.
//
// Example:
//
//	config := &compression.Config{
//	    Algorithm:           compression.Zstd,
//	    Level:               compression.Better,
//	    MaxDecompressedSize: 64 << 20,
//	}
type Config struct {
	Algorithm Algorithm // Compression algorithm to use
	Level     Level     // Compression level
	// MaxDecompressedSize caps decompressed output in bytes; 0 means no cap
	MaxDecompressedSize int64
}

// DefaultConfig returns a Snappy configuration with no output cap.
func DefaultConfig() *Config {
	return &Config{
		Algorithm: Snappy,
		Level:     Default,
	}
}

// NewCodec creates a codec for config. A nil config means DefaultConfig.
//
// Example:
//
//	fast, _ := compression.NewCodec(&compression.Config{
//	    Algorithm: compression.LZ4,
//	    Level:     compression.Fastest,
//	})
func NewCodec(config *Config) (Codec, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxDecompressedSize < 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "max decompressed size cannot be negative")
	}

	base := baseCodec{
		algorithm: config.Algorithm,
		level:     config.Level,
		maxSize:   config.MaxDecompressedSize,
	}

	switch config.Algorithm {
	case None, "":
		base.algorithm = None
		return &noneCodec{baseCodec: base}, nil
	case Gzip:
		return newGzipCodec(base), nil
	case Deflate:
		return newDeflateCodec(base), nil
	case LZ4:
		return newLZ4Codec(base), nil
	case Snappy:
		return newSnappyCodec(base), nil
	case S2:
		return newS2Codec(base), nil
	case Zstd:
		return newZstdCodec(base)
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "unsupported compression algorithm").
			WithDetail("algorithm", string(config.Algorithm))
	}
}

// Pack lends a buffer from bp, compresses src into it and freezes it. On
// failure the buffer goes straight back to the pool.
func Pack(bp *bytespool.BytesPool, codec Codec, src []byte) (bytespool.Bytes, error) {
	buf := bp.Lend()
	if err := codec.Compress(buf, src); err != nil {
		buf.Release()
		return bytespool.Bytes{}, err
	}
	return buf.Freeze(), nil
}

// Unpack lends a buffer from bp, decompresses src into it and freezes it.
func Unpack(bp *bytespool.BytesPool, codec Codec, src []byte) (bytespool.Bytes, error) {
	buf := bp.Lend()
	if err := codec.Decompress(buf, src); err != nil {
		buf.Release()
		return bytespool.Bytes{}, err
	}
	return buf.Freeze(), nil
}

type baseCodec struct {
	algorithm Algorithm
	level     Level
	maxSize   int64
}

// Algorithm returns the compression algorithm
func (b *baseCodec) Algorithm() Algorithm {
	return b.algorithm
}

// Level returns the compression level
func (b *baseCodec) Level() Level {
	return b.level
}

func (b *baseCodec) fail(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, errors.ErrorTypeData, op+" failed").
		WithDetail("algorithm", string(b.algorithm))
}

// copyLimited copies src to dst, failing once the output passes maxSize.
func (b *baseCodec) copyLimited(dst io.Writer, src io.Reader) error {
	if b.maxSize == 0 {
		_, err := io.Copy(dst, src) //nolint:gosec // G110: callers opted out of a cap
		return b.fail(err, "decompress")
	}
	n, err := io.Copy(dst, io.LimitReader(src, b.maxSize+1))
	if err != nil {
		return b.fail(err, "decompress")
	}
	if n > b.maxSize {
		return b.tooLarge()
	}
	return nil
}

func (b *baseCodec) tooLarge() error {
	return errors.New(errors.ErrorTypeData, "decompressed size exceeds limit").
		WithDetail("algorithm", string(b.algorithm)).
		WithDetail("limit", b.maxSize)
}

// noneCodec copies data unchanged.
type noneCodec struct {
	baseCodec
}

func (c *noneCodec) Compress(dst *bytespool.BytesMut, src []byte) error {
	dst.Append(src)
	return nil
}

func (c *noneCodec) Decompress(dst *bytespool.BytesMut, src []byte) error {
	if c.maxSize > 0 && int64(len(src)) > c.maxSize {
		return c.tooLarge()
	}
	dst.Append(src)
	return nil
}

func (c *noneCodec) CompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return c.fail(err, "compress")
}

func (c *noneCodec) DecompressStream(dst io.Writer, src io.Reader) error {
	return c.copyLimited(dst, src)
}

func (c *noneCodec) Close() {}
