// Package pool provides reusable scan buffers.
package pool

import "sync"

const (
	ScanBufferDefaultSize  = 1024 * 4    // 4KiB
	ScanBufferMaxThreshold = 1024 * 1024 // 1MiB
)

// ByteBuffer is a scan buffer whose whole capacity is used as the read window.
type ByteBuffer struct {
	// B is the underlying byte slice. Its length marks the bytes in use.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the given capacity.
func NewByteBuffer(size int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, size),
	}
}

// Bytes returns the bytes in use.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Window returns the buffer extended to its full capacity.
func (bb *ByteBuffer) Window() []byte {
	return bb.B[:cap(bb.B)]
}

// Reset empties the buffer but keeps its memory.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the number of bytes in use.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// SetLength marks the first n bytes as in use.
// Panics if n is negative or greater than the capacity.
func (bb *ByteBuffer) SetLength(n int) {
	if n < 0 || n > cap(bb.B) {
		panic("SetLength: invalid length")
	}
	bb.B = bb.B[:n]
}

// Grow ensures room for requiredBytes beyond the bytes in use.
//
// Capacity doubles until it fits, so a run of oversized tokens costs a
// logarithmic number of reallocations. Bytes in use are preserved.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	if cap(bb.B)-len(bb.B) >= requiredBytes {
		return
	}

	newCap := max(cap(bb.B), ScanBufferDefaultSize)
	for newCap-len(bb.B) < requiredBytes {
		newCap *= 2
	}

	newBuf := make([]byte, len(bb.B), newCap)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// ByteBufferPool is a sync.Pool of ByteBuffers.
//
// Buffers that grew beyond maxThreshold are dropped on Put so one huge
// token does not pin memory for every later parse.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool of buffers with the given initial size.
// A maxThreshold of zero retains buffers of any size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves an empty ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool. Nil buffers are ignored.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var scanDefaultPool = NewByteBufferPool(ScanBufferDefaultSize, ScanBufferMaxThreshold)

// GetScanBuffer retrieves a buffer from the default scan pool.
func GetScanBuffer() *ByteBuffer {
	return scanDefaultPool.Get()
}

// PutScanBuffer returns a buffer to the default scan pool.
func PutScanBuffer(bb *ByteBuffer) {
	scanDefaultPool.Put(bb)
}
