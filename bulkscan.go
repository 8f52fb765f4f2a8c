// Package bulkscan extracts the identifiers of failed entries from bulk write
// responses without holding the response in memory.
//
// A bulk write (Elasticsearch or OpenSearch _bulk) answers with one result
// per submitted operation. When some of them fail, the caller needs the
// identifiers of exactly those entries to retry them. Responses for large
// batches run into hundreds of megabytes; bulkscan reads them as a stream,
// keeps a bounded buffer, and stops reading as soon as the answer is known.
//
// # Core Features
//
//   - Resumable tokenizer: tokens split across reads are carried over, never re-read
//   - Early exit: a false failure flag ends the scan after the first read
//   - Bounded results: more failures than the caller's capacity fail with errs.ErrOverflow
//   - Compressed sources: zstd, S2, LZ4 and gzip streams are decoded on the fly
//   - Safe for concurrent use: one Parser serves any number of goroutines
//
// # Basic Usage
//
//	import "github.com/arloliu/bulkscan"
//
//	resp, _ := client.Do(bulkRequest)
//	defer resp.Body.Close()
//
//	outcome, err := bulkscan.Parse(ctx, resp.Body, len(batch))
//	if err != nil {
//	    return err
//	}
//	if !outcome.Success {
//	    retry(outcome.IDs)
//	}
//
// Compressed bodies:
//
//	outcome, err := bulkscan.ParseCompressed(ctx, resp.Body, format.CompressionGzip, len(batch))
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the scanner
// package. For parser reuse and fine-grained control, use scanner.NewParser
// directly.
package bulkscan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/arloliu/bulkscan/compress"
	"github.com/arloliu/bulkscan/errs"
	"github.com/arloliu/bulkscan/format"
	"github.com/arloliu/bulkscan/scanner"
)

// Outcome is the result of scanning a bulk response.
type Outcome = scanner.Outcome

var defaultParser = sync.OnceValues(func() (*scanner.Parser, error) {
	return scanner.NewParser()
})

// NewParser creates a Parser with the given options.
//
// Parameters:
//   - opts: scanner options such as scanner.WithTargetStatus or scanner.WithDistinctIDs
//
// Returns:
//   - *scanner.Parser: parser safe for concurrent use
//   - error: errs.ErrInvalidOption if an option is invalid
//
// Example:
//
//	parser, err := bulkscan.NewParser(
//	    scanner.WithTargetStatus(429),
//	    scanner.WithLogger(logger),
//	)
func NewParser(opts ...scanner.ParserOption) (*scanner.Parser, error) {
	return scanner.NewParser(opts...)
}

// NewDefaultParser creates a Parser that reports entries with status 400,
// keeps duplicates and uses the fast path.
func NewDefaultParser() (*scanner.Parser, error) {
	return scanner.NewParser()
}

// Parse scans the bulk response read from r.
//
// Without options a shared default parser is used; with options a parser is
// built for this call. Callers that parse repeatedly with options should
// create a parser once with NewParser.
//
// Parameters:
//   - ctx: cancels the scan between reads
//   - r: uncompressed response body
//   - maxErrors: capacity for failed identifiers, usually the batch size
//   - opts: optional scanner options
//
// Returns:
//   - Outcome: Success, or the identifiers of entries with the target status
//   - error: one of the errs sentinels
func Parse(ctx context.Context, r io.Reader, maxErrors int, opts ...scanner.ParserOption) (Outcome, error) {
	parser, err := parserFor(opts)
	if err != nil {
		return Outcome{}, err
	}

	return parser.Parse(ctx, r, maxErrors)
}

// ParseBytes scans an in-memory bulk response.
func ParseBytes(ctx context.Context, data []byte, maxErrors int, opts ...scanner.ParserOption) (Outcome, error) {
	parser, err := parserFor(opts)
	if err != nil {
		return Outcome{}, err
	}

	return parser.ParseBytes(ctx, data, maxErrors)
}

// ParseCompressed scans a compressed bulk response, decoding it while reading.
//
// Returns errs.ErrUnsupportedCompression for an unknown compression type and
// errs.ErrIO when the stream header cannot be read; decoder errors met while
// scanning surface as errs.ErrIO as well.
func ParseCompressed(ctx context.Context, r io.Reader, compressionType format.CompressionType, maxErrors int, opts ...scanner.ParserOption) (Outcome, error) {
	parser, err := parserFor(opts)
	if err != nil {
		return Outcome{}, err
	}

	return parseCompressed(ctx, parser, r, compressionType, maxErrors)
}

// ParseAuto detects the compression format from the stream's magic number
// and scans the decoded response. Streams without a known magic number are
// scanned as plain JSON.
func ParseAuto(ctx context.Context, r io.Reader, maxErrors int, opts ...scanner.ParserOption) (Outcome, error) {
	parser, err := parserFor(opts)
	if err != nil {
		return Outcome{}, err
	}

	br := bufio.NewReader(r)
	prefix, err := br.Peek(format.DetectPrefixSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return Outcome{}, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}

	return parseCompressed(ctx, parser, br, format.Detect(prefix), maxErrors)
}

func parseCompressed(ctx context.Context, parser *scanner.Parser, r io.Reader, compressionType format.CompressionType, maxErrors int) (Outcome, error) {
	body, err := compress.NewReader(r, compressionType)
	if err != nil {
		if errors.Is(err, errs.ErrUnsupportedCompression) {
			return Outcome{}, err
		}

		return Outcome{}, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}
	defer body.Close()

	return parser.Parse(ctx, body, maxErrors)
}

func parserFor(opts []scanner.ParserOption) (*scanner.Parser, error) {
	if len(opts) == 0 {
		return defaultParser()
	}

	return scanner.NewParser(opts...)
}
