// Package scanner extracts failed entry identifiers from bulk write responses
// without materializing the document.
//
// A bulk response has a fixed shape:
//
//	{"took":30,"errors":true,"items":[
//	  {"index":{"_id":"1","status":201}},
//	  {"index":{"_id":"2","status":400,"error":{"type":"mapper_parsing_exception"}}}
//	]}
//
// The scanner is built from four pieces:
//
//   - Tokenizer: an incremental lexer over one byte window. It never consumes a
//     partial token and hands back a ContinuationState to resume with.
//   - path tracker: a small state machine that follows the tokens through the
//     schema and recognizes "errors", "items", "_id" and "status" at the depths
//     where they belong.
//   - Collector: copies matching identifiers into owned strings, up to a fixed
//     capacity, failing with errs.ErrOverflow rather than truncating.
//   - Parser: the read loop. It reads chunks into a pooled buffer, moves leftover
//     bytes of a split token to the front, grows the buffer when one token does
//     not fit, and stops reading once the outcome is decided.
//
// # Early exit
//
// When the failure flag is false the outcome is known and the rest of the
// stream is never read. The Parser additionally peeks at the first
// FastPathPrefixSize bytes for the literal `"errors":false` before tokenizing.
// That check relies on the canonical serialization placing the flag near the
// start; when the literal is not found the parser falls back to a full scan.
//
// # Memory
//
// The identifier of the current entry is copied into tracker-owned scratch
// memory as soon as it is seen, because the scan buffer is overwritten by the
// next read. Owned strings are only allocated for entries that match.
//
// # Usage
//
//	parser, err := scanner.NewParser()
//	if err != nil {
//	    return err
//	}
//	outcome, err := parser.Parse(ctx, resp.Body, len(batch))
//	if err != nil {
//	    return err
//	}
//	if !outcome.Success {
//	    retry(outcome.IDs)
//	}
package scanner
