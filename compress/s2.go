package compress

import (
	"io"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/bulkscan/format"
)

// S2Codec reads and writes the S2 stream format, which is also able to read
// Snappy framed streams.
type S2Codec struct{}

var _ Codec = (*S2Codec)(nil)

// NewS2Codec creates a new S2 codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

// Type returns format.CompressionS2.
func (S2Codec) Type() format.CompressionType {
	return format.CompressionS2
}

// NewReader returns an S2 stream decoder over r.
func (S2Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(s2.NewReader(r)), nil
}

// NewWriter returns an S2 stream encoder writing to w.
func (S2Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return s2.NewWriter(w, s2.WriterConcurrency(1)), nil
}
