package source

import (
	"context"
	"io"
)

// ContextReader fails reads once its context is done.
//
// The check happens before each Read is forwarded, which makes a reader
// that blocks between chunks (a network body, a pipe) cancellable at chunk
// granularity.
type ContextReader struct {
	ctx context.Context
	r   io.Reader
}

var _ io.Reader = (*ContextReader)(nil)

// NewContextReader wraps r so that reads return ctx.Err() after ctx is done.
func NewContextReader(ctx context.Context, r io.Reader) *ContextReader {
	return &ContextReader{ctx: ctx, r: r}
}

// Read forwards to the wrapped reader unless the context is done.
func (cr *ContextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}

	return cr.r.Read(p)
}
