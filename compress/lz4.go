package compress

import (
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/bulkscan/format"
)

// LZ4Codec reads and writes LZ4 frame streams.
type LZ4Codec struct{}

var _ Codec = (*LZ4Codec)(nil)

// NewLZ4Codec creates a new LZ4 codec.
//
// Returns:
//   - LZ4Codec: New LZ4 codec instance
func NewLZ4Codec() LZ4Codec {
	return LZ4Codec{}
}

// Type returns format.CompressionLZ4.
func (LZ4Codec) Type() format.CompressionType {
	return format.CompressionLZ4
}

// NewReader returns an LZ4 frame decoder over r.
//
// The decoder yields data block by block, so a read never returns more than
// one decompressed block.
func (LZ4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

// NewWriter returns an LZ4 frame encoder writing to w.
//
// Parameters:
//   - w: destination of the compressed frames
//
// Returns:
//   - io.WriteCloser: encoder; Close writes the end mark
//   - error: option errors from the lz4 package
func (LZ4Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.BlockSizeOption(lz4.Block64Kb), lz4.ConcurrencyOption(1)); err != nil {
		return nil, err
	}

	return zw, nil
}
