package source

import (
	"io"
	"sync/atomic"
)

// CountingReader records how many Read calls were made and how many bytes
// they delivered. Counters are safe to read from other goroutines.
type CountingReader struct {
	r     io.Reader
	reads atomic.Int64
	bytes atomic.Int64
}

var _ io.Reader = (*CountingReader)(nil)

// NewCountingReader wraps r with read accounting.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

// Read forwards to the wrapped reader and updates the counters.
func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.reads.Add(1)
	cr.bytes.Add(int64(n))

	return n, err
}

// Reads returns the number of Read calls made so far.
func (cr *CountingReader) Reads() int64 {
	return cr.reads.Load()
}

// Bytes returns the number of bytes delivered so far.
func (cr *CountingReader) Bytes() int64 {
	return cr.bytes.Load()
}
