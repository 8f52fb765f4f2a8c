package source

import (
	"fmt"
	"io"
)

// ChunkReader caps the number of bytes returned by each Read.
//
// It reproduces the short reads of network and decompression streams, which
// split tokens at arbitrary byte positions.
type ChunkReader struct {
	r    io.Reader
	size int
}

var _ io.Reader = (*ChunkReader)(nil)

// NewChunkReader wraps r so that every Read returns at most size bytes.
//
// Returns an error if size is not positive.
func NewChunkReader(r io.Reader, size int) (*ChunkReader, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}

	return &ChunkReader{r: r, size: size}, nil
}

// Read reads at most the configured chunk size into p.
func (cr *ChunkReader) Read(p []byte) (int, error) {
	if len(p) > cr.size {
		p = p[:cr.size]
	}

	return cr.r.Read(p)
}
