// Package compress provides streaming decoders and encoders for compressed
// bulk response bodies.
//
// Search clusters commonly return large bulk responses compressed, and
// captured responses are archived compressed. The scanner reads straight from
// a decoder returned by this package, so a body is never decompressed into
// memory in full.
//
// # Supported Algorithms
//
//   - None (format.CompressionNone): pass-through
//   - Zstd (format.CompressionZstd): klauspost/compress, or valyala/gozstd when built with -tags gozstd and cgo
//   - S2 (format.CompressionS2): klauspost/compress/s2 stream format
//   - LZ4 (format.CompressionLZ4): pierrec/lz4 frame format
//   - Gzip (format.CompressionGzip): klauspost/compress/gzip
//
// # Usage
//
//	body, err := compress.NewReader(resp.Body, format.CompressionGzip)
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
//
//	outcome, err := parser.Parse(ctx, body, len(batch))
//
// Decoders deliver data in whatever pieces the algorithm produces (one block
// for LZ4 and S2, one window flush for zstd), which exercises the scanner's
// chunk boundary handling on every read.
//
// # Memory Management
//
// The pure Go zstd decoder and encoder are pooled; closing a reader or writer
// returns them to the pool. Always Close what NewReader and NewWriter return.
//
// # Thread Safety
//
// Codecs are stateless and can be shared across goroutines. Each reader and
// writer belongs to a single goroutine.
package compress
