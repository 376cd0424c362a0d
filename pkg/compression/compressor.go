// Package compression provides the compression algorithms behind the
// pipeline's compression stage.
//
// Supported algorithms trade speed against ratio:
//   - Snappy/S2: best for speed, moderate compression
//   - LZ4: extremely fast, decent compression
//   - Zstd: best compression ratio, good speed
//   - Gzip: wide compatibility, good compression
//
// All compressors operate on in-memory byte slices (the pipeline hands
// each record's bytes through as a unit) and reuse encoder instances via
// sync.Pool where initialization is expensive.
package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/acorn/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None disables compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Level controls the trade-off between compression speed and ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Better improves compression at cost of speed
	Better Level = 7
	// Best maximizes compression ratio
	Best Level = 9
)

// Compressor compresses and decompresses byte slices. Implementations are
// safe for concurrent use.
type Compressor interface {
	// Compress compresses data; the input is not modified
	Compress(data []byte) ([]byte, error)

	// Decompress inverts Compress for any bytes it produced
	Decompress(data []byte) ([]byte, error)

	// Algorithm returns the algorithm in use
	Algorithm() Algorithm
}

var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

func getBuf() *bytes.Buffer {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuf(buf *bytes.Buffer) {
	// Oversized buffers are dropped rather than pinned in the pool
	if buf.Cap() <= 1<<20 {
		bufPool.Put(buf)
	}
}

func drain(buf *bytes.Buffer) []byte {
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// New creates a compressor for the given algorithm and level.
func New(algorithm Algorithm, level Level) (Compressor, error) {
	switch algorithm {
	case None, "":
		return noneCompressor{}, nil
	case Gzip:
		return newGzipCompressor(level), nil
	case Snappy:
		return snappyCompressor{}, nil
	case LZ4:
		return newLZ4Compressor(level), nil
	case Zstd:
		return newZstdCompressor(level), nil
	case S2:
		return s2Compressor{}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", algorithm)
	}
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Algorithm() Algorithm                   { return None }

// Gzip

type gzipCompressor struct {
	level      int
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipCompressor(level Level) *gzipCompressor {
	gc := &gzipCompressor{level: mapGzipLevel(level)}
	gc.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gc.level)
		return w
	}
	gc.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}
	return gc
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	buf := getBuf()
	defer putBuf(buf)

	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return drain(buf), nil
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r := gc.readerPool.Get().(*gzip.Reader)
	defer gc.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	buf := getBuf()
	defer putBuf(buf)

	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return drain(buf), nil
}

func (gc *gzipCompressor) Algorithm() Algorithm { return Gzip }

// Snappy

type snappyCompressor struct{}

func (snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCompressor) Decompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}

func (snappyCompressor) Algorithm() Algorithm { return Snappy }

// LZ4

type lz4Compressor struct {
	level lz4.CompressionLevel
}

func newLZ4Compressor(level Level) *lz4Compressor {
	return &lz4Compressor{level: mapLZ4Level(level)}
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	buf := getBuf()
	defer putBuf(buf)

	w := lz4.NewWriter(buf)
	if err := w.Apply(lz4.CompressionLevelOption(lc.level)); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return drain(buf), nil
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	buf := getBuf()
	defer putBuf(buf)

	if _, err := io.Copy(buf, lz4.NewReader(bytes.NewReader(data))); err != nil {
		return nil, err
	}
	return drain(buf), nil
}

func (lc *lz4Compressor) Algorithm() Algorithm { return LZ4 }

// Zstd

type zstdCompressor struct {
	encoderPool sync.Pool
	decoderPool sync.Pool
}

func newZstdCompressor(level Level) *zstdCompressor {
	zstdLevel := mapZstdLevel(level)
	zc := &zstdCompressor{}
	zc.encoderPool.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel))
		return enc
	}
	zc.decoderPool.New = func() interface{} {
		dec, _ := zstd.NewReader(nil)
		return dec
	}
	return zc
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc := zc.encoderPool.Get().(*zstd.Encoder)
	defer zc.encoderPool.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)
	return dec.DecodeAll(data, nil)
}

func (zc *zstdCompressor) Algorithm() Algorithm { return Zstd }

// S2

type s2Compressor struct{}

func (s2Compressor) Compress(data []byte) ([]byte, error) {
	return s2.Encode(nil, data), nil
}

func (s2Compressor) Decompress(data []byte) ([]byte, error) {
	return s2.Decode(nil, data)
}

func (s2Compressor) Algorithm() Algorithm { return S2 }

// Level mapping

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
