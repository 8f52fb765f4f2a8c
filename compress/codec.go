package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/arloliu/bulkscan/errs"
	"github.com/arloliu/bulkscan/format"
)

// Codec creates streaming decoders and encoders for one compression format.
//
// Decoders are the byte sources the scanner reads from: each Read returns
// whatever the decompressor produced so far, which splits tokens at arbitrary
// positions. Encoders exist to produce compressed fixtures and for the CLI's
// encode mode.
//
// Thread Safety: Codec implementations are stateless and safe for concurrent
// use. The returned readers and writers are not.
type Codec interface {
	// Type returns the compression format handled by the codec.
	Type() format.CompressionType

	// NewReader returns a reader that decompresses r.
	//
	// Closing the reader releases decoder resources; it does not close r.
	NewReader(r io.Reader) (io.ReadCloser, error)

	// NewWriter returns a writer that compresses into w.
	//
	// Close must be called to flush the final frame; it does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCodec(),
	format.CompressionZstd: NewZstdCodec(),
	format.CompressionS2:   NewS2Codec(),
	format.CompressionLZ4:  NewLZ4Codec(),
	format.CompressionGzip: NewGzipCodec(),
}

// GetCodec retrieves the built-in Codec for the specified compression type.
//
// Returns errs.ErrUnsupportedCompression for unknown types.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedCompression, compressionType)
}

// NewReader returns a decompressing reader over r.
//
// Parameters:
//   - r: the compressed stream
//   - compressionType: format of r; format.CompressionNone passes r through
//
// Returns:
//   - io.ReadCloser: decompressed stream; close it to release the decoder
//   - error: errs.ErrUnsupportedCompression, or a stream header error for gzip
//
// Example:
//
//	body, err := compress.NewReader(resp.Body, format.CompressionZstd)
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
//	outcome, err := parser.Parse(ctx, body, len(batch))
func NewReader(r io.Reader, compressionType format.CompressionType) (io.ReadCloser, error) {
	codec, err := GetCodec(compressionType)
	if err != nil {
		return nil, err
	}

	return codec.NewReader(r)
}

// NewWriter returns a compressing writer over w.
func NewWriter(w io.Writer, compressionType format.CompressionType) (io.WriteCloser, error) {
	codec, err := GetCodec(compressionType)
	if err != nil {
		return nil, err
	}

	return codec.NewWriter(w)
}

// Compress compresses data into a single complete stream.
//
// Returned slice is newly allocated and owned by the caller; data is not modified.
func Compress(data []byte, compressionType format.CompressionType) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, compressionType)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%s compression failed: %w", compressionType, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s compression failed: %w", compressionType, err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses a complete stream into memory.
func Decompress(data []byte, compressionType format.CompressionType) ([]byte, error) {
	r, err := NewReader(bytes.NewReader(data), compressionType)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s decompression failed: %w", compressionType, err)
	}

	return out, nil
}

// CompressionStats describes one compression run.
//
// The CLI's encode mode reports it so operators can pick a format for
// captured responses.
type CompressionStats struct {
	// Algorithm identifies the compression algorithm used
	Algorithm format.CompressionType

	// OriginalSize is the size of input data before compression
	OriginalSize int64

	// CompressedSize is the size of data after compression
	CompressedSize int64
}

// CompressionRatio returns the compression ratio (compressed size / original size).
//
// Values less than 1.0 indicate successful compression.
//
// Returns:
//   - float64: Compression ratio (0.0 if original size is zero)
func (s CompressionStats) CompressionRatio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the space savings as a percentage (0-100%).
func (s CompressionStats) SpaceSavings() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return (1.0 - s.CompressionRatio()) * 100.0
}

// CountingWriter counts the bytes written through it. Wrap the destination of
// an encoder with it to fill CompressionStats.CompressedSize.
type CountingWriter struct {
	W io.Writer
	N int64
}

// Write forwards p to the wrapped writer and adds the written length to N.
func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	cw.N += int64(n)

	return n, err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
