// Package errs defines the error values returned by bulkscan.
//
// Every failure aborts a parse. Callers classify failures with errors.Is
// against the sentinels below; syntax problems additionally carry the byte
// offset at which they were detected through *SyntaxError.
package errs

import (
	"errors"
	"strconv"
)

var (
	// ErrMalformedInput indicates bytes that a valid bulk response could not contain.
	ErrMalformedInput = errors.New("bulkscan: malformed input")

	// ErrUnexpectedEndOfInput indicates the stream ended inside a token or container.
	ErrUnexpectedEndOfInput = errors.New("bulkscan: unexpected end of input")

	// ErrOverflow indicates more failed entries than the caller-provided capacity.
	ErrOverflow = errors.New("bulkscan: failed entry count exceeds capacity")

	// ErrIO wraps an error returned by the byte source.
	ErrIO = errors.New("bulkscan: read failed")

	// ErrCancelled indicates the parse was cancelled while waiting for input.
	ErrCancelled = errors.New("bulkscan: parse cancelled")

	// ErrInvalidOption indicates an invalid parser or collector configuration.
	ErrInvalidOption = errors.New("bulkscan: invalid option")

	// ErrUnsupportedCompression indicates an unknown compression type.
	ErrUnsupportedCompression = errors.New("bulkscan: unsupported compression")
)

// SyntaxError describes a lexical or structural problem at a byte offset.
//
// It unwraps to ErrMalformedInput or ErrUnexpectedEndOfInput.
type SyntaxError struct {
	Msg    string
	Offset int64
	Err    error
}

// NewSyntaxError creates a SyntaxError of the given kind.
func NewSyntaxError(kind error, msg string, offset int64) *SyntaxError {
	return &SyntaxError{Msg: msg, Offset: offset, Err: kind}
}

func (e *SyntaxError) Error() string {
	return e.Err.Error() + ": " + e.Msg + " at offset " + strconv.FormatInt(e.Offset, 10)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
