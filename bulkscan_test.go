package bulkscan

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bulkscan/compress"
	"github.com/arloliu/bulkscan/errs"
	"github.com/arloliu/bulkscan/format"
	"github.com/arloliu/bulkscan/scanner"
)

const failedDoc = `{"took":5,"errors":true,"items":[` +
	`{"index":{"_id":"1","status":201}},` +
	`{"index":{"_id":"2","status":400,"error":{"type":"mapper_parsing_exception","status":400}}},` +
	`{"create":{"_id":"3","status":429}}]}`

var allTypes = []format.CompressionType{
	format.CompressionNone,
	format.CompressionZstd,
	format.CompressionS2,
	format.CompressionLZ4,
	format.CompressionGzip,
}

// TestNewDefaultParser verifies the default parser reports status 400 entries
func TestNewDefaultParser(t *testing.T) {
	parser, err := NewDefaultParser()
	require.NoError(t, err)
	require.NotNil(t, parser)

	out, err := parser.ParseBytes(context.Background(), []byte(failedDoc), 3)
	require.NoError(t, err)
	require.Equal(t, Outcome{IDs: []string{"2"}}, out)
}

// TestNewParser verifies options reach the parser
func TestNewParser(t *testing.T) {
	parser, err := NewParser(scanner.WithTargetStatus(429))
	require.NoError(t, err)

	out, err := parser.ParseBytes(context.Background(), []byte(failedDoc), 3)
	require.NoError(t, err)
	require.Equal(t, []string{"3"}, out.IDs)

	_, err = NewParser(scanner.WithTargetStatus(1000))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestParse(t *testing.T) {
	out, err := Parse(context.Background(), strings.NewReader(failedDoc), 3)
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, out.IDs)

	out, err = Parse(context.Background(), strings.NewReader(`{"took":1,"errors":false,"items":[]}`), 0)
	require.NoError(t, err)
	require.True(t, out.Success)

	out, err = Parse(context.Background(), strings.NewReader(failedDoc), 3, scanner.WithTargetStatus(429))
	require.NoError(t, err)
	require.Equal(t, []string{"3"}, out.IDs)

	_, err = Parse(context.Background(), strings.NewReader(failedDoc), 3, scanner.WithTargetStatus(42))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestParseBytes(t *testing.T) {
	out, err := ParseBytes(context.Background(), []byte(failedDoc), 1)
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, out.IDs)

	_, err = ParseBytes(context.Background(), []byte(failedDoc), 0)
	require.ErrorIs(t, err, errs.ErrOverflow)
}

func TestParseCompressed(t *testing.T) {
	for _, ct := range allTypes {
		t.Run(ct.String(), func(t *testing.T) {
			compressed, err := compress.Compress([]byte(failedDoc), ct)
			require.NoError(t, err)

			out, err := ParseCompressed(context.Background(), bytes.NewReader(compressed), ct, 3)
			require.NoError(t, err)
			require.Equal(t, []string{"2"}, out.IDs)
		})
	}
}

func TestParseCompressed_Errors(t *testing.T) {
	_, err := ParseCompressed(context.Background(), strings.NewReader(failedDoc), format.CompressionType(0), 3)
	require.ErrorIs(t, err, errs.ErrUnsupportedCompression)

	_, err = ParseCompressed(context.Background(), strings.NewReader(failedDoc), format.CompressionGzip, 3)
	require.ErrorIs(t, err, errs.ErrIO)

	compressed, err := compress.Compress([]byte(failedDoc), format.CompressionZstd)
	require.NoError(t, err)
	_, err = ParseCompressed(context.Background(), bytes.NewReader(compressed[:len(compressed)/2]), format.CompressionZstd, 3)
	require.Error(t, err)
}

func TestParseAuto(t *testing.T) {
	for _, ct := range allTypes {
		t.Run(ct.String(), func(t *testing.T) {
			compressed, err := compress.Compress([]byte(failedDoc), ct)
			require.NoError(t, err)

			out, err := ParseAuto(context.Background(), bytes.NewReader(compressed), 3)
			require.NoError(t, err)
			require.Equal(t, []string{"2"}, out.IDs)
		})
	}
}

func TestParseAuto_ShortInput(t *testing.T) {
	out, err := ParseAuto(context.Background(), strings.NewReader(`{}`), 0)
	require.NoError(t, err)
	require.True(t, out.Success)

	_, err = ParseAuto(context.Background(), strings.NewReader(``), 0)
	require.ErrorIs(t, err, errs.ErrUnexpectedEndOfInput)
}

func ExampleParse() {
	body := strings.NewReader(`{"took":3,"errors":true,"items":[` +
		`{"index":{"_id":"a","status":201}},` +
		`{"index":{"_id":"b","status":400}}]}`)

	outcome, err := Parse(context.Background(), body, 10)
	if err != nil {
		panic(err)
	}
	fmt.Println(outcome.Success, outcome.IDs)
	// Output: false [b]
}
