package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/bulkscan/errs"
	"github.com/arloliu/bulkscan/source"
)

func newTestParser(t testing.TB, opts ...ParserOption) *Parser {
	t.Helper()

	p, err := NewParser(opts...)
	require.NoError(t, err)

	return p
}

// ==============================================================================
// Basic outcomes
// ==============================================================================

func TestParser_Parse(t *testing.T) {
	entries, failed := generateEntries(50, 7)

	tests := []struct {
		name    string
		doc     []byte
		success bool
		ids     []string
	}{
		{
			name:    "no failures",
			doc:     buildResponse(false, []testEntry{{id: "a", status: 201}, {id: "b", status: 200}}),
			success: true,
		},
		{
			name:    "failures",
			doc:     buildResponse(true, entries),
			success: false,
			ids:     failed,
		},
		{
			name: "mixed operations",
			doc: buildResponse(true, []testEntry{
				{op: "index", id: "1", status: 201},
				{op: "create", id: "2", status: 400},
				{op: "update", id: "3", status: 409},
				{op: "delete", id: "4", status: 400},
			}),
			success: false,
			ids:     []string{"2", "4"},
		},
		{
			name:    "failures without target status",
			doc:     buildResponse(true, []testEntry{{id: "a", status: 409}, {id: "b", status: 503}}),
			success: false,
			ids:     []string{},
		},
		{
			name:    "empty items",
			doc:     []byte(`{"took":0,"errors":true,"items":[]}`),
			success: false,
			ids:     []string{},
		},
		{
			name:    "absent flag",
			doc:     []byte(`{"took":0,"items":[{"index":{"_id":"a","status":400}}]}`),
			success: true,
		},
		{
			name:    "flag true without items",
			doc:     []byte(`{"took":0,"errors":true}`),
			success: false,
			ids:     []string{},
		},
		{
			name:    "items before flag",
			doc:     []byte(`{"items":[{"index":{"_id":"a","status":400}},{"index":{"_id":"b","status":201}}],"errors":true}`),
			success: false,
			ids:     []string{"a"},
		},
		{
			name:    "escaped id",
			doc:     []byte(`{"errors":true,"items":[{"index":{"_id":"a\"b\\cé😀","status":400}}]}`),
			success: false,
			ids:     []string{"a\"b\\cé😀"},
		},
		{
			name:    "raw multibyte id",
			doc:     []byte(`{"errors":true,"items":[{"index":{"_id":"日本語-ü","status":400}}]}`),
			success: false,
			ids:     []string{"日本語-ü"},
		},
		{
			name:    "whitespace everywhere",
			doc:     []byte(" {\n \"errors\" : true ,\n \"items\" : [\n  { \"index\" : { \"_id\" : \"a\" , \"status\" : 400 } }\n ]\n}\n"),
			success: false,
			ids:     []string{"a"},
		},
	}

	for _, fastPath := range []bool{true, false} {
		p := newTestParser(t, WithFastPath(fastPath))
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s/fastPath=%t", tt.name, fastPath), func(t *testing.T) {
				out, err := p.ParseBytes(context.Background(), tt.doc, 100)
				require.NoError(t, err)
				require.Equal(t, tt.success, out.Success)
				if tt.success {
					require.Empty(t, out.IDs)
				} else {
					require.Equal(t, tt.ids, out.IDs)
				}
			})
		}
	}
}

func TestParser_DocumentOrder(t *testing.T) {
	entries, failed := generateEntries(2000, 3)
	doc := buildResponse(true, entries)

	out, err := newTestParser(t).ParseBytes(context.Background(), doc, len(failed))
	require.NoError(t, err)
	require.False(t, out.Success)
	require.Equal(t, failed, out.IDs)
}

// ==============================================================================
// Chunking
// ==============================================================================

func TestParser_ChunkSizes(t *testing.T) {
	entries := []testEntry{
		{id: "c", status: 400},
		{id: "ab", status: 201},
		{id: "é😀日", status: 400},
		{id: `q"uote`, status: 400},
		{id: "long-" + strings.Repeat("x", 200), status: 400},
	}
	doc := buildResponse(true, entries)
	want := []string{"c", "é😀日", `q"uote`, "long-" + strings.Repeat("x", 200)}

	p := newTestParser(t, WithInitialBufferSize(32))
	for size := 1; size <= len(doc); size++ {
		r, err := source.NewChunkReader(bytes.NewReader(doc), size)
		require.NoError(t, err)

		out, err := p.Parse(context.Background(), r, 10)
		require.NoError(t, err, "chunk size %d", size)
		require.False(t, out.Success)
		require.Equal(t, want, out.IDs, "chunk size %d", size)
	}
}

func TestParser_EverySplitPoint(t *testing.T) {
	doc := []byte(`{"took":3,"errors":true,"items":[{"index":{"_id":"c","status":400}},{"index":{"_id":"ü😀","status":400}}]}`)
	want := []string{"c", "ü😀"}

	p := newTestParser(t)
	for split := 0; split <= len(doc); split++ {
		r := io.MultiReader(bytes.NewReader(doc[:split]), bytes.NewReader(doc[split:]))

		out, err := p.Parse(context.Background(), r, 2)
		require.NoError(t, err, "split at %d", split)
		require.Equal(t, want, out.IDs, "split at %d", split)
	}
}

func TestParser_ReaderShapes(t *testing.T) {
	entries, failed := generateEntries(300, 5)
	doc := buildResponse(true, entries)

	readers := map[string]func() io.Reader{
		"OneByteReader": func() io.Reader { return iotest.OneByteReader(bytes.NewReader(doc)) },
		"HalfReader":    func() io.Reader { return iotest.HalfReader(bytes.NewReader(doc)) },
		"DataErrReader": func() io.Reader { return iotest.DataErrReader(bytes.NewReader(doc)) },
		"BufferedFull":  func() io.Reader { return bytes.NewBuffer(doc) },
	}

	p := newTestParser(t)
	for name, newReader := range readers {
		t.Run(name, func(t *testing.T) {
			out, err := p.Parse(context.Background(), newReader(), len(failed))
			require.NoError(t, err)
			require.Equal(t, failed, out.IDs)
		})
	}
}

func TestParser_BufferGrowth(t *testing.T) {
	long := strings.Repeat("k", 10_000)
	doc := buildResponse(true, []testEntry{{id: long, status: 400}, {id: "short", status: 400}})

	p := newTestParser(t, WithInitialBufferSize(16))
	r, err := source.NewChunkReader(bytes.NewReader(doc), 7)
	require.NoError(t, err)

	out, err := p.Parse(context.Background(), r, 2)
	require.NoError(t, err)
	require.Equal(t, []string{long, "short"}, out.IDs)
}

func TestParser_MaxBufferSize(t *testing.T) {
	doc := buildResponse(true, []testEntry{{id: strings.Repeat("k", 100), status: 400}})

	p := newTestParser(t, WithInitialBufferSize(16), WithMaxBufferSize(32))
	_, err := p.ParseBytes(context.Background(), doc, 1)
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	var syntaxErr *errs.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	require.Contains(t, syntaxErr.Msg, "max buffer size")
}

// ==============================================================================
// Early exit
// ==============================================================================

func TestParser_EarlyExit_FastPath(t *testing.T) {
	entries, _ := generateEntries(5000, 0)
	doc := buildResponse(false, entries)

	counter := source.NewCountingReader(bytes.NewReader(doc))
	out, err := newTestParser(t).Parse(context.Background(), counter, 0)
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Empty(t, out.IDs)

	require.Equal(t, int64(1), counter.Reads())
	require.LessOrEqual(t, counter.Bytes(), int64(FastPathPrefixSize))
}

func TestParser_EarlyExit_FullScan(t *testing.T) {
	entries, _ := generateEntries(5000, 0)
	doc := buildResponse(false, entries)

	counter := source.NewCountingReader(bytes.NewReader(doc))
	out, err := newTestParser(t, WithFastPath(false)).Parse(context.Background(), counter, 0)
	require.NoError(t, err)
	require.True(t, out.Success)

	require.Equal(t, int64(1), counter.Reads(), "the first window already holds the flag")
	require.Less(t, counter.Bytes(), int64(len(doc)))
}

func TestParser_EarlyExit_SmallChunks(t *testing.T) {
	entries, _ := generateEntries(1000, 0)
	doc := buildResponse(false, entries)

	chunked, err := source.NewChunkReader(bytes.NewReader(doc), 8)
	require.NoError(t, err)
	counter := source.NewCountingReader(chunked)

	out, err := newTestParser(t, WithFastPath(false)).Parse(context.Background(), counter, 0)
	require.NoError(t, err)
	require.True(t, out.Success)

	// `{"took":30,"errors":false` is 25 bytes
	require.Equal(t, int64(4), counter.Reads())
}

func TestParser_EarlyExit_AfterItems(t *testing.T) {
	entries, failed := generateEntries(20, 2)
	doc := buildResponse(true, entries)
	doc = append(doc[:len(doc)-1], []byte(`,"trailer":"`+strings.Repeat("t", 100_000)+`"}`)...)

	chunked, err := source.NewChunkReader(bytes.NewReader(doc), 512)
	require.NoError(t, err)
	counter := source.NewCountingReader(chunked)

	out, err := newTestParser(t).Parse(context.Background(), counter, len(failed))
	require.NoError(t, err)
	require.Equal(t, failed, out.IDs)
	require.Less(t, counter.Bytes(), int64(len(doc)/2), "bytes after the items array are not read")
}

func TestParser_FastPathFallback(t *testing.T) {
	doc := []byte(`{ "took" : 1, "errors" : false, "items" : [ {"index":{"_id":"a","status":201}} ] }`)

	counter := source.NewCountingReader(bytes.NewReader(doc))
	out, err := newTestParser(t).Parse(context.Background(), counter, 0)
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, int64(1), counter.Reads(), "peeked bytes are scanned before reading again")
}

func TestParser_FastPathRequiresCanonicalLayout(t *testing.T) {
	// a nested "errors":false inside the prefix fools the fast path
	doc := []byte(`{"meta":{"errors":false},"errors":true,"items":[{"index":{"_id":"a","status":400}}]}`)

	out, err := newTestParser(t).ParseBytes(context.Background(), doc, 1)
	require.NoError(t, err)
	require.True(t, out.Success)

	out, err = newTestParser(t, WithFastPath(false)).ParseBytes(context.Background(), doc, 1)
	require.NoError(t, err)
	require.False(t, out.Success)
	require.Equal(t, []string{"a"}, out.IDs)
}

// ==============================================================================
// Errors
// ==============================================================================

func TestParser_Overflow(t *testing.T) {
	entries, failed := generateEntries(10, 2)
	doc := buildResponse(true, entries)

	p := newTestParser(t)
	_, err := p.ParseBytes(context.Background(), doc, len(failed)-1)
	require.ErrorIs(t, err, errs.ErrOverflow)

	_, err = p.ParseBytes(context.Background(), doc, 0)
	require.ErrorIs(t, err, errs.ErrOverflow)

	out, err := p.ParseBytes(context.Background(), doc, len(failed))
	require.NoError(t, err)
	require.Equal(t, failed, out.IDs)
}

func TestParser_ZeroCapacityWithoutFailures(t *testing.T) {
	doc := buildResponse(false, []testEntry{{id: "a", status: 201}})

	out, err := newTestParser(t).ParseBytes(context.Background(), doc, 0)
	require.NoError(t, err)
	require.True(t, out.Success)
}

func TestParser_Truncated(t *testing.T) {
	doc := buildResponse(true, []testEntry{{id: "a", status: 400}, {id: "b", status: 201}, {id: "c", status: 400}})
	itemsEnd := bytes.LastIndexByte(doc, ']')

	p := newTestParser(t)
	for cut := 0; cut < itemsEnd; cut++ {
		_, err := p.ParseBytes(context.Background(), doc[:cut], 10)
		require.ErrorIs(t, err, errs.ErrUnexpectedEndOfInput, "cut at %d", cut)
	}
}

func TestParser_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"top-level array", `[{"errors":true}]`},
		{"top-level scalar", `42`},
		{"string flag", `{"errors":"false","items":[]}`},
		{"null flag", `{"errors":null}`},
		{"items object", `{"errors":true,"items":{}}`},
		{"missing comma in entry", `{"errors":true,"items":[{"index":{"_id":"a" "status":400}}]}`},
		{"bad number", `{"errors":true,"items":[{"index":{"_id":"a","status":4x0}}]}`},
		{"bad escape in id", `{"errors":true,"items":[{"index":{"_id":"a\q","status":400}}]}`},
		{"raw newline in id", "{\"errors\":true,\"items\":[{\"index\":{\"_id\":\"a\nb\",\"status\":400}}]}"},
		{"mismatched close", `{"errors":true,"items":[{"index":{"_id":"a","status":400]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser(t, WithFastPath(false)).ParseBytes(context.Background(), []byte(tt.doc), 10)
			require.ErrorIs(t, err, errs.ErrMalformedInput)
		})
	}
}

func TestParser_EmptyInput(t *testing.T) {
	for _, fastPath := range []bool{true, false} {
		_, err := newTestParser(t, WithFastPath(fastPath)).ParseBytes(context.Background(), nil, 1)
		require.ErrorIs(t, err, errs.ErrUnexpectedEndOfInput)
	}
}

func TestParser_NegativeMaxErrors(t *testing.T) {
	_, err := newTestParser(t).ParseBytes(context.Background(), []byte(`{}`), -1)
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

type zeroReader struct{}

func (zeroReader) Read([]byte) (int, error) { return 0, nil }

func TestParser_NoProgress(t *testing.T) {
	_, err := newTestParser(t).Parse(context.Background(), zeroReader{}, 1)
	require.ErrorIs(t, err, errs.ErrIO)
	require.ErrorIs(t, err, io.ErrNoProgress)
}

func TestParser_ReadError(t *testing.T) {
	boom := errors.New("connection reset")

	r := io.MultiReader(strings.NewReader(`{"errors":true,"items":[`), iotest.ErrReader(boom))
	_, err := newTestParser(t).Parse(context.Background(), r, 1)
	require.ErrorIs(t, err, errs.ErrIO)
	require.ErrorIs(t, err, boom)
}

func TestParser_ReaderTimeout(t *testing.T) {
	r := iotest.TimeoutReader(strings.NewReader(`{"errors":true,"items":[{"index":{"_id":"a","status":400}}]}`))

	_, err := newTestParser(t, WithInitialBufferSize(8), WithFastPath(false)).Parse(context.Background(), r, 1)
	require.ErrorIs(t, err, errs.ErrIO)
	require.ErrorIs(t, err, iotest.ErrTimeout)
}

// ==============================================================================
// Cancellation
// ==============================================================================

func TestParser_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	counter := source.NewCountingReader(strings.NewReader(`{"errors":false}`))
	for _, fastPath := range []bool{true, false} {
		_, err := newTestParser(t, WithFastPath(fastPath)).Parse(ctx, counter, 1)
		require.ErrorIs(t, err, errs.ErrCancelled)
		require.ErrorIs(t, err, context.Canceled)
	}
	require.Zero(t, counter.Reads())
}

// cancelAfterFirstRead cancels its context once the first chunk was delivered.
type cancelAfterFirstRead struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (c *cancelAfterFirstRead) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.cancel()

	return n, err
}

func TestParser_CancelledMidStream(t *testing.T) {
	entries, _ := generateEntries(100, 2)
	doc := buildResponse(true, entries)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunked, err := source.NewChunkReader(bytes.NewReader(doc), 64)
	require.NoError(t, err)

	_, err = newTestParser(t).Parse(ctx, &cancelAfterFirstRead{r: chunked, cancel: cancel}, 100)
	require.ErrorIs(t, err, errs.ErrCancelled)
}

func TestParser_ReaderReportsDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	r := source.NewContextReader(ctx, strings.NewReader(`{"errors":true}`))
	_, err := newTestParser(t).Parse(context.Background(), r, 1)
	require.ErrorIs(t, err, errs.ErrCancelled)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// ==============================================================================
// Options
// ==============================================================================

func TestNewParser_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []ParserOption
	}{
		{"status too low", []ParserOption{WithTargetStatus(99)}},
		{"status too high", []ParserOption{WithTargetStatus(600)}},
		{"zero initial buffer", []ParserOption{WithInitialBufferSize(0)}},
		{"negative max buffer", []ParserOption{WithMaxBufferSize(-1)}},
		{"initial above max", []ParserOption{WithInitialBufferSize(64), WithMaxBufferSize(32)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(tt.opts...)
			require.ErrorIs(t, err, errs.ErrInvalidOption)
		})
	}
}

func TestParser_TargetStatus(t *testing.T) {
	doc := buildResponse(true, []testEntry{
		{id: "a", status: 400},
		{id: "b", status: 429},
		{id: "c", status: 429},
	})

	out, err := newTestParser(t, WithTargetStatus(429)).ParseBytes(context.Background(), doc, 5)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, out.IDs)
}

func TestParser_DistinctIDs(t *testing.T) {
	doc := buildResponse(true, []testEntry{
		{op: "update", id: "a", status: 400},
		{op: "update", id: "b", status: 400},
		{op: "delete", id: "a", status: 400},
	})

	out, err := newTestParser(t).ParseBytes(context.Background(), doc, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "a"}, out.IDs)

	out, err = newTestParser(t, WithDistinctIDs()).ParseBytes(context.Background(), doc, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, out.IDs)
}

func TestParser_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	doc := buildResponse(true, []testEntry{{id: "a", status: 400}})
	_, err := newTestParser(t, WithLogger(logger)).ParseBytes(context.Background(), doc, 1)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "scan finished early")
	assert.Contains(t, buf.String(), "component=bulkscan")
	assert.Contains(t, buf.String(), "phase=Exhausted")
	assert.Contains(t, buf.String(), "failed=1 duplicates=0 hash_collisions=0")

	buf.Reset()
	_, err = newTestParser(t, WithLogger(nil)).ParseBytes(context.Background(), doc, 1)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

// ==============================================================================
// Concurrency
// ==============================================================================

func TestParser_Concurrent(t *testing.T) {
	p := newTestParser(t, WithInitialBufferSize(64))

	const workers = 8
	var wg sync.WaitGroup
	results := make([]error, workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			entries, failed := generateEntries(200+w*10, w+2)
			doc := buildResponse(true, entries)
			for range 20 {
				out, err := p.ParseBytes(context.Background(), doc, len(failed))
				if err != nil {
					results[w] = err
					return
				}
				if !assert.ObjectsAreEqual(failed, out.IDs) {
					results[w] = fmt.Errorf("worker %d: unexpected ids", w)
					return
				}
			}
		}()
	}
	wg.Wait()

	for _, err := range results {
		require.NoError(t, err)
	}
}

// ==============================================================================
// Benchmarks
// ==============================================================================

func BenchmarkParser_Parse(b *testing.B) {
	entries, failed := generateEntries(1000, 20)

	cases := []struct {
		name     string
		doc      []byte
		fastPath bool
	}{
		{"NoFailures/FastPath", buildResponse(false, entries), true},
		{"NoFailures/FullScan", buildResponse(false, entries), false},
		{"Failures", buildResponse(true, entries), true},
	}

	for _, bc := range cases {
		b.Run(bc.name, func(b *testing.B) {
			p := newTestParser(b, WithFastPath(bc.fastPath))
			ctx := context.Background()
			r := bytes.NewReader(bc.doc)

			b.SetBytes(int64(len(bc.doc)))
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				r.Reset(bc.doc)
				if _, err := p.Parse(ctx, r, len(failed)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
