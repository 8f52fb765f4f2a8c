//go:build cgo && gozstd

package compress

import (
	"errors"
	"io"

	"github.com/valyala/gozstd"
)

var errZstdClosed = errors.New("zstd: read after close")

// zstdReader releases the libzstd stream on Close.
type zstdReader struct {
	zr *gozstd.Reader
}

func (z *zstdReader) Read(p []byte) (int, error) {
	if z.zr == nil {
		return 0, errZstdClosed
	}

	return z.zr.Read(p)
}

func (z *zstdReader) Close() error {
	if z.zr != nil {
		z.zr.Release()
		z.zr = nil
	}

	return nil
}

// zstdWriter flushes the frame and releases the libzstd stream on Close.
type zstdWriter struct {
	zw *gozstd.Writer
}

func (z *zstdWriter) Write(p []byte) (int, error) {
	if z.zw == nil {
		return 0, errZstdClosed
	}

	return z.zw.Write(p)
}

func (z *zstdWriter) Close() error {
	if z.zw == nil {
		return nil
	}
	err := z.zw.Close()
	z.zw.Release()
	z.zw = nil

	return err
}

// NewReader returns a libzstd stream decoder over r.
func (ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return &zstdReader{zr: gozstd.NewReader(r)}, nil
}

// NewWriter returns a libzstd stream encoder writing to w at level 3.
func (ZstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return &zstdWriter{zw: gozstd.NewWriterLevel(w, 3)}, nil
}
