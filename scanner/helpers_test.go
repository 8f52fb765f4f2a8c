package scanner

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testEntry struct {
	op     string
	id     string
	status int
}

// buildResponse renders a bulk response the way Elasticsearch serializes it,
// including the nested objects that real entries carry.
func buildResponse(errorsFlag bool, entries []testEntry) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, `{"took":30,"errors":%t,"items":[`, errorsFlag)
	for i, e := range entries {
		if i > 0 {
			sb.WriteByte(',')
		}
		op := e.op
		if op == "" {
			op = "index"
		}
		fmt.Fprintf(&sb, `{"%s":{"_index":"logs-2024","_id":%q,"_version":1,`, op, e.id)
		if e.status >= 300 {
			fmt.Fprintf(&sb, `"status":%d,"error":{"type":"mapper_parsing_exception","reason":"failed to parse field [ts]","status":%d,"caused_by":{"type":"illegal_argument_exception","reason":"bad"}}}}`,
				e.status, e.status)
		} else {
			fmt.Fprintf(&sb, `"result":"created","_shards":{"total":2,"successful":1,"failed":0},"_seq_no":%d,"_primary_term":1,"status":%d}}`,
				i, e.status)
		}
	}
	sb.WriteString("]}")

	return []byte(sb.String())
}

// generateEntries creates n entries, failing every failEvery-th one with 400.
func generateEntries(n, failEvery int) ([]testEntry, []string) {
	entries := make([]testEntry, n)
	var failed []string
	for i := range entries {
		entries[i] = testEntry{id: fmt.Sprintf("doc-%06d", i), status: 201}
		if failEvery > 0 && i%failEvery == 0 {
			entries[i].status = 400
			failed = append(failed, entries[i].id)
		}
	}

	return entries, failed
}

type tokenSnap struct {
	Kind    TokenKind
	Depth   int
	Value   string
	Escaped bool
	Int     int64
	IsInt   bool
	Offset  int64
}

func snap(tok Token) tokenSnap {
	return tokenSnap{
		Kind:    tok.Kind,
		Depth:   tok.Depth,
		Value:   string(tok.Value),
		Escaped: tok.Escaped,
		Int:     tok.Int,
		IsInt:   tok.IsInt,
		Offset:  tok.Offset,
	}
}

// tokenizeChunks feeds chunks to successive tokenizers the way the Parser
// does: unconsumed bytes are carried in front of the next chunk together with
// the returned state. A final empty chunk marks the end of input.
func tokenizeChunks(t *testing.T, chunks ...[]byte) ([]tokenSnap, error) {
	t.Helper()

	chunks = append(chunks, nil)
	var (
		state   ContinuationState
		pending []byte
		out     []tokenSnap
	)
	for i, chunk := range chunks {
		window := append(append([]byte(nil), pending...), chunk...)
		tz := NewTokenizer(window, i == len(chunks)-1, state)
		for tok, err := range tz.All() {
			if err != nil {
				return out, err
			}
			out = append(out, snap(tok))
		}
		state = tz.State()
		pending = append([]byte(nil), window[tz.Consumed():]...)
	}
	require.Empty(t, pending, "no bytes may remain after the final chunk")

	return out, nil
}
