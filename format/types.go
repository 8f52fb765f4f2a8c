// Package format enumerates the compression formats a bulk response body can
// arrive in.
package format

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/arloliu/bulkscan/errs"
)

type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents an uncompressed body.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents a Zstandard stream.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents an S2 stream.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents an LZ4 frame stream.
	CompressionGzip CompressionType = 0x5 // CompressionGzip represents a gzip stream.
)

// Stream magic numbers used by Detect.
var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
	s2Magic   = []byte("\xff\x06\x00\x00S2sTwO")
)

// DetectPrefixSize is the number of leading bytes Detect needs to recognize every format.
const DetectPrefixSize = 10

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionGzip:
		return "Gzip"
	default:
		return "Unknown"
	}
}

// ParseCompressionType parses a case-insensitive compression name.
//
// Accepted names are "none", "zstd", "s2", "lz4" and "gzip" ("gz" and the
// empty string are aliases for gzip and none).
//
// Returns errs.ErrUnsupportedCompression for any other name.
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	default:
		return 0, fmt.Errorf("%w: %q", errs.ErrUnsupportedCompression, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CompressionType) MarshalText() ([]byte, error) {
	if c.String() == "Unknown" {
		return nil, fmt.Errorf("%w: 0x%x", errs.ErrUnsupportedCompression, uint8(c))
	}

	return []byte(strings.ToLower(c.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so configuration files
// can name a compression type.
func (c *CompressionType) UnmarshalText(text []byte) error {
	parsed, err := ParseCompressionType(string(text))
	if err != nil {
		return err
	}
	*c = parsed

	return nil
}

// Detect identifies the compression format from the first bytes of a stream.
// Anything without a known magic number is reported as CompressionNone.
//
// Parameters:
//   - prefix: at least DetectPrefixSize leading bytes for reliable S2 detection
func Detect(prefix []byte) CompressionType {
	switch {
	case bytes.HasPrefix(prefix, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(prefix, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(prefix, lz4Magic):
		return CompressionLZ4
	case bytes.HasPrefix(prefix, s2Magic):
		return CompressionS2
	default:
		return CompressionNone
	}
}
