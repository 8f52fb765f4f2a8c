package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/arloliu/bulkscan/errs"
	"github.com/arloliu/bulkscan/internal/options"
	"github.com/arloliu/bulkscan/internal/pool"
)

// FastPathPrefixSize is the number of leading bytes inspected by the fast path.
const FastPathPrefixSize = 64

// maxEmptyReads bounds consecutive (0, nil) reads before giving up.
const maxEmptyReads = 100

var noFailuresPattern = []byte(`"errors":false`)

// Outcome is the result of scanning a bulk response.
type Outcome struct {
	// Success is true when the response's failure flag is false or absent.
	Success bool

	// IDs lists the identifiers of entries with the target status, in
	// document order. It is empty when Success is true.
	IDs []string
}

// Parser scans bulk responses for failed entries.
//
// A Parser holds only configuration and a buffer pool, so one instance can
// serve concurrent Parse calls; each call owns its buffer and scan state.
type Parser struct {
	targetStatus      int64
	initialBufferSize int
	maxBufferSize     int
	fastPath          bool
	collectorOpts     []CollectorOption
	logger            *slog.Logger
	getBuffer         func() *pool.ByteBuffer
	putBuffer         func(*pool.ByteBuffer)
}

// NewParser creates a parser with the given options.
//
// Returns errs.ErrInvalidOption if any option is invalid.
//
// Example:
//
//	parser, err := scanner.NewParser(
//	    scanner.WithTargetStatus(429),
//	    scanner.WithDistinctIDs(),
//	)
func NewParser(opts ...ParserOption) (*Parser, error) {
	p := defaultParser()
	if err := options.Apply(p, opts...); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	// parsers with the default size share one process-wide pool
	if p.initialBufferSize == pool.ScanBufferDefaultSize {
		p.getBuffer, p.putBuffer = pool.GetScanBuffer, pool.PutScanBuffer
	} else {
		bp := pool.NewByteBufferPool(p.initialBufferSize, max(pool.ScanBufferMaxThreshold, p.initialBufferSize))
		p.getBuffer, p.putBuffer = bp.Get, bp.Put
	}

	return p, nil
}

// ParseBytes scans an in-memory bulk response.
func (p *Parser) ParseBytes(ctx context.Context, data []byte, maxErrors int) (Outcome, error) {
	return p.Parse(ctx, bytes.NewReader(data), maxErrors)
}

// Parse scans the bulk response read from r and returns the identifiers of
// entries whose status equals the target status.
//
// The response is read in chunks into a pooled buffer and never held in
// full. Reading stops as soon as the outcome is known: right after a false
// failure flag, or after the items array closes.
//
// Parameters:
//   - ctx: checked before every read; cancellation aborts with errs.ErrCancelled
//   - r: the byte source; io.EOF marks the end of input
//   - maxErrors: capacity for failed identifiers; exceeding it fails with errs.ErrOverflow
//
// Returns:
//   - Outcome: the scan result, only meaningful when error is nil
//   - error: errs.ErrMalformedInput, errs.ErrUnexpectedEndOfInput, errs.ErrOverflow,
//     errs.ErrIO, errs.ErrCancelled or errs.ErrInvalidOption
func (p *Parser) Parse(ctx context.Context, r io.Reader, maxErrors int) (Outcome, error) {
	if maxErrors < 0 {
		return Outcome{}, fmt.Errorf("%w: negative maxErrors %d", errs.ErrInvalidOption, maxErrors)
	}

	collector, err := NewCollector(maxErrors, p.collectorOpts...)
	if err != nil {
		return Outcome{}, err
	}

	bb := p.getBuffer()
	defer p.putBuffer(bb)

	d := drive{
		parser:  p,
		src:     r,
		bb:      bb,
		tracker: newPathTracker(collector, p.targetStatus),
	}
	d.buf = d.window()

	return d.run(ctx)
}

// drive is the per-call state of the read loop.
type drive struct {
	parser     *Parser
	src        io.Reader
	bb         *pool.ByteBuffer
	buf        []byte
	filled     int
	final      bool
	emptyReads int
	state      ContinuationState
	tok        Tokenizer
	tracker    *pathTracker
}

func (d *drive) run(ctx context.Context) (Outcome, error) {
	if d.parser.fastPath {
		done, err := d.peek(ctx)
		if err != nil {
			return Outcome{}, err
		}
		if done {
			d.parser.logger.Debug("fast path: no failures in prefix")
			return Outcome{Success: true}, nil
		}
	}

	// peeked bytes are tokenized before the next read
	pending := d.filled > 0
	for {
		if pending {
			pending = false
		} else if !d.final {
			progressed, err := d.read(ctx)
			if err != nil {
				return Outcome{}, err
			}
			if !progressed {
				continue
			}
		}

		d.tok.Reset(d.buf[:d.filled], d.final, d.state)
		for {
			tok, ok, err := d.tok.Next()
			if err != nil {
				return Outcome{}, err
			}
			if !ok {
				break
			}
			if err := d.tracker.observe(tok); err != nil {
				return Outcome{}, err
			}
			if d.tracker.terminal() {
				d.logFinish("scan finished early", tok.Offset)
				return d.tracker.outcome(), nil
			}
		}

		d.state = d.tok.State()
		d.filled = copy(d.buf, d.buf[d.tok.Consumed():d.filled])

		if d.final {
			d.logFinish("scan reached end of input", d.state.Offset())
			return d.tracker.outcome(), nil
		}
	}
}

func (d *drive) logFinish(msg string, offset int64) {
	c := d.tracker.collector
	d.parser.logger.Debug(msg,
		"phase", d.tracker.phase.String(),
		"offset", offset,
		"failed", c.Len(),
		"duplicates", c.Duplicates(),
		"hash_collisions", c.HashCollisions(),
	)
}

// peek performs a single read of at most FastPathPrefixSize bytes and
// reports whether it shows the failure flag set to false. The bytes read
// stay in the buffer as the start of the first window.
func (d *drive) peek(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, cancelled(err)
	}

	n, err := d.src.Read(d.buf[:min(FastPathPrefixSize, len(d.buf))])
	d.filled = n
	if err != nil && !errors.Is(err, io.EOF) {
		return false, readError(err)
	}
	d.final = errors.Is(err, io.EOF)

	return bytes.Contains(d.buf[:n], noFailuresPattern), nil
}

// read appends the next chunk after the leftover bytes. It returns false
// when the source delivered nothing and no state changed.
func (d *drive) read(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, cancelled(err)
	}

	if d.filled == len(d.buf) {
		if err := d.grow(); err != nil {
			return false, err
		}
	}

	n, err := d.src.Read(d.buf[d.filled:])
	d.filled += n
	switch {
	case errors.Is(err, io.EOF):
		d.final = true
	case err != nil:
		return false, readError(err)
	case n == 0:
		d.emptyReads++
		if d.emptyReads >= maxEmptyReads {
			return false, fmt.Errorf("%w: %w", errs.ErrIO, io.ErrNoProgress)
		}

		return false, nil
	}
	d.emptyReads = 0

	return true, nil
}

// grow doubles the window when a single token fills all of it. The window
// never exceeds the max buffer size, even when the pooled buffer is larger.
func (d *drive) grow() error {
	size := len(d.buf)
	if size >= d.parser.maxBufferSize {
		return errs.NewSyntaxError(errs.ErrMalformedInput,
			fmt.Sprintf("token exceeds max buffer size of %d bytes", d.parser.maxBufferSize), d.state.Offset())
	}

	d.bb.SetLength(d.filled)
	d.bb.Grow(size)
	d.buf = d.window()
	d.parser.logger.Debug("scan buffer grown", "size", len(d.buf), "offset", d.state.Offset())

	return nil
}

func (d *drive) window() []byte {
	w := d.bb.Window()
	return w[:min(len(w), d.parser.maxBufferSize)]
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", errs.ErrCancelled, err)
}

func readError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelled(err)
	}

	return fmt.Errorf("%w: %w", errs.ErrIO, err)
}
