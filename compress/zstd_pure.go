//go:build !(cgo && gozstd)

package compress

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoderPool pools zstd decoders for reuse to eliminate allocation overhead.
// The klauspost/compress/zstd library is explicitly designed for decoder reuse:
// "The decoder has been designed to operate without allocations after a warmup.
// This means that you should store the decoder for best performance."
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1), // streaming decode stays on the caller's goroutine
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

// zstdEncoderPool pools zstd encoders for reuse to eliminate allocation overhead.
var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}

		return encoder
	},
}

var errZstdClosed = errors.New("zstd: read after close")

// zstdReader returns its decoder to the pool on Close.
type zstdReader struct {
	dec *zstd.Decoder
}

func (z *zstdReader) Read(p []byte) (int, error) {
	if z.dec == nil {
		return 0, errZstdClosed
	}

	return z.dec.Read(p)
}

func (z *zstdReader) Close() error {
	if z.dec != nil {
		zstdDecoderPool.Put(z.dec)
		z.dec = nil
	}

	return nil
}

// zstdWriter flushes the frame and returns its encoder to the pool on Close.
type zstdWriter struct {
	enc *zstd.Encoder
}

func (z *zstdWriter) Write(p []byte) (int, error) {
	if z.enc == nil {
		return 0, errZstdClosed
	}

	return z.enc.Write(p)
}

func (z *zstdWriter) Close() error {
	if z.enc == nil {
		return nil
	}
	err := z.enc.Close()
	zstdEncoderPool.Put(z.enc)
	z.enc = nil

	return err
}

// NewReader returns a pooled zstd stream decoder over r.
func (ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	// Get decoder from pool (reuses "warmed up" decoder)
	dec, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	if err := dec.Reset(r); err != nil {
		zstdDecoderPool.Put(dec)
		return nil, fmt.Errorf("zstd decoder reset: %w", err)
	}

	return &zstdReader{dec: dec}, nil
}

// NewWriter returns a pooled zstd stream encoder writing to w.
func (ZstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	enc, _ := zstdEncoderPool.Get().(*zstd.Encoder)
	enc.Reset(w)

	return &zstdWriter{enc: enc}, nil
}
