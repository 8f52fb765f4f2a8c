package scanner

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/bulkscan/errs"
	"github.com/arloliu/bulkscan/internal/options"
	"github.com/arloliu/bulkscan/internal/pool"
)

// DefaultMaxBufferSize caps scan buffer growth for a single oversized token.
const DefaultMaxBufferSize = 64 * 1024 * 1024 // 64MiB

// ParserOption configures a Parser.
type ParserOption = options.Option[*Parser]

// WithTargetStatus sets the entry status code that marks an entry as failed.
// The default is DefaultTargetStatus (400).
func WithTargetStatus(status int) ParserOption {
	return options.New(func(p *Parser) error {
		if status < 100 || status > 599 {
			return fmt.Errorf("%w: target status %d is not an HTTP status code", errs.ErrInvalidOption, status)
		}
		p.targetStatus = int64(status)

		return nil
	})
}

// WithInitialBufferSize sets the initial scan buffer size in bytes.
//
// The buffer only grows when a single token does not fit, so the default of
// pool.ScanBufferDefaultSize suits bulk responses with ordinary identifiers.
func WithInitialBufferSize(size int) ParserOption {
	return options.New(func(p *Parser) error {
		if size <= 0 {
			return fmt.Errorf("%w: initial buffer size must be positive, got %d", errs.ErrInvalidOption, size)
		}
		p.initialBufferSize = size

		return nil
	})
}

// WithMaxBufferSize caps how far the scan buffer may grow to hold one token.
// A token larger than the cap fails the parse with errs.ErrMalformedInput.
func WithMaxBufferSize(size int) ParserOption {
	return options.New(func(p *Parser) error {
		if size <= 0 {
			return fmt.Errorf("%w: max buffer size must be positive, got %d", errs.ErrInvalidOption, size)
		}
		p.maxBufferSize = size

		return nil
	})
}

// WithFastPath enables or disables the prefix check for `"errors":false`.
//
// The check assumes the canonical serialization, which writes the failure
// flag without whitespace within the first FastPathPrefixSize bytes. When the
// pattern is not found the parser falls back to a full scan, so disabling it
// only matters for documents that may nest an "errors":false member inside
// an earlier top-level value.
func WithFastPath(enabled bool) ParserOption {
	return options.NoError(func(p *Parser) {
		p.fastPath = enabled
	})
}

// WithDistinctIDs reports each failed identifier once, even when several
// entries share it. See WithDistinct.
func WithDistinctIDs() ParserOption {
	return options.NoError(func(p *Parser) {
		p.collectorOpts = append(p.collectorOpts, WithDistinct())
	})
}

// WithLogger sets the logger used for debug diagnostics.
// A nil logger restores the default, which discards everything.
func WithLogger(logger *slog.Logger) ParserOption {
	return options.NoError(func(p *Parser) {
		if logger == nil {
			logger = discardLogger
		}
		p.logger = logger.With("component", "bulkscan")
	})
}

var discardLogger = slog.New(slog.DiscardHandler)

func (p *Parser) validate() error {
	if p.initialBufferSize > p.maxBufferSize {
		return fmt.Errorf("%w: initial buffer size %d exceeds max buffer size %d",
			errs.ErrInvalidOption, p.initialBufferSize, p.maxBufferSize)
	}

	return nil
}

func defaultParser() *Parser {
	return &Parser{
		targetStatus:      DefaultTargetStatus,
		initialBufferSize: pool.ScanBufferDefaultSize,
		maxBufferSize:     DefaultMaxBufferSize,
		fastPath:          true,
		logger:            discardLogger,
	}
}
