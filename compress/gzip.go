package compress

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/arloliu/bulkscan/format"
)

// GzipCodec reads and writes gzip streams, the usual Content-Encoding of
// compressed HTTP responses.
type GzipCodec struct{}

var _ Codec = (*GzipCodec)(nil)

// NewGzipCodec creates a new gzip codec.
func NewGzipCodec() GzipCodec {
	return GzipCodec{}
}

// Type returns format.CompressionGzip.
func (GzipCodec) Type() format.CompressionType {
	return format.CompressionGzip
}

// NewReader returns a gzip decoder over r. It reads the gzip header, so it
// fails immediately when r does not start with one.
func (GzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}

	return zr, nil
}

// NewWriter returns a gzip encoder writing to w.
func (GzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}
