package scanner

import (
	"iter"
	"math"
	"strconv"

	"github.com/arloliu/bulkscan/errs"
)

var (
	isSpace = [256]bool{
		' ':  true,
		'\n': true,
		'\t': true,
		'\r': true,
	}
	isNumberByte = [256]bool{
		'0': true, '1': true, '2': true, '3': true, '4': true,
		'5': true, '6': true, '7': true, '8': true, '9': true,
		'-': true, '+': true, '.': true, 'e': true, 'E': true,
	}
	isHex = [256]bool{
		'0': true, '1': true, '2': true, '3': true, '4': true,
		'5': true, '6': true, '7': true, '8': true, '9': true,
		'a': true, 'b': true, 'c': true, 'd': true, 'e': true, 'f': true,
		'A': true, 'B': true, 'C': true, 'D': true, 'E': true, 'F': true,
	}
)

// Tokenizer is an incremental JSON lexer over one window of bytes.
//
// It never consumes a partial token: when the window ends inside a string,
// number or literal, Next reports no token and Consumed stops at the start of
// that token. The caller resubmits the unconsumed suffix, followed by fresh
// bytes, to a new Tokenizer built from State.
//
// A Tokenizer tracks container nesting only to the extent needed to tell
// property names from string values and to validate delimiters.
type Tokenizer struct {
	buf   []byte
	pos   int
	final bool
	state ContinuationState
	base  int64
	err   error
}

// NewTokenizer creates a tokenizer over buf.
//
// Parameters:
//   - buf: the window to tokenize; borrowed until the next Reset or until the caller overwrites it
//   - isFinal: true when no more bytes will follow buf
//   - state: the state returned by the previous tokenizer, or the zero value at document start
func NewTokenizer(buf []byte, isFinal bool, state ContinuationState) *Tokenizer {
	t := &Tokenizer{}
	t.Reset(buf, isFinal, state)

	return t
}

// Reset re-targets the tokenizer at a new window, allowing reuse without allocation.
func (t *Tokenizer) Reset(buf []byte, isFinal bool, state ContinuationState) {
	t.buf = buf
	t.pos = 0
	t.final = isFinal
	t.state = state
	t.base = state.offset
	t.err = nil
}

// Consumed returns the number of bytes of the window consumed so far.
func (t *Tokenizer) Consumed() int {
	return t.pos
}

// State returns the continuation state for the bytes consumed so far.
func (t *Tokenizer) State() ContinuationState {
	s := t.state
	s.offset = t.base + int64(t.pos)

	return s
}

// All returns an iterator over the remaining complete tokens in the window.
// Iteration stops after the first error, which is yielded with a zero Token.
//
// Example:
//
//	for tok, err := range tokenizer.All() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(tok.Kind, string(tok.Value))
//	}
func (t *Tokenizer) All() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			tok, ok, err := t.Next()
			if err != nil {
				yield(Token{}, err)
				return
			}
			if !ok || !yield(tok, nil) {
				return
			}
		}
	}
}

// Next returns the next complete token.
//
// Returns:
//   - Token: the token; its Value borrows from the window
//   - bool: false when the window holds no further complete token
//   - error: ErrMalformedInput or ErrUnexpectedEndOfInput wrapped in *errs.SyntaxError
func (t *Tokenizer) Next() (Token, bool, error) {
	if t.err != nil {
		return Token{}, false, t.err
	}

	for {
		t.skipSpaces()
		if t.pos >= len(t.buf) {
			if t.final && t.state.expect != expectDone {
				return t.fail(errs.ErrUnexpectedEndOfInput, "document is not complete", t.pos)
			}

			return Token{}, false, nil
		}

		c := t.buf[t.pos]
		switch t.state.expect {
		case expectDone:
			return t.fail(errs.ErrMalformedInput, "invalid character "+quoteByte(c)+" after top-level value", t.pos)
		case expectColon:
			if c != ':' {
				return t.fail(errs.ErrMalformedInput, "invalid character "+quoteByte(c)+" after property name", t.pos)
			}
			t.pos++
			t.state.expect = expectValue
		case expectCommaOrEnd:
			object := t.state.inObject()
			switch {
			case c == ',':
				t.pos++
				if object {
					t.state.expect = expectKey
				} else {
					t.state.expect = expectValue
				}
			case c == '}' && object, c == ']' && !object:
				return t.closeContainer(c), true, nil
			default:
				return t.fail(errs.ErrMalformedInput, "invalid character "+quoteByte(c)+" after value", t.pos)
			}
		case expectKeyOrEnd:
			if c == '}' {
				return t.closeContainer(c), true, nil
			}
			if c != '"' {
				return t.fail(errs.ErrMalformedInput, "invalid character "+quoteByte(c)+" looking for property name", t.pos)
			}

			return t.lexString(KindPropertyName)
		case expectKey:
			if c != '"' {
				return t.fail(errs.ErrMalformedInput, "invalid character "+quoteByte(c)+" looking for property name", t.pos)
			}

			return t.lexString(KindPropertyName)
		case expectValueOrEnd:
			if c == ']' {
				return t.closeContainer(c), true, nil
			}

			return t.lexValue(c)
		default:
			return t.lexValue(c)
		}
	}
}

func (t *Tokenizer) skipSpaces() {
	for t.pos < len(t.buf) && isSpace[t.buf[t.pos]] {
		t.pos++
	}
}

func (t *Tokenizer) offset(pos int) int64 {
	return t.base + int64(pos)
}

func (t *Tokenizer) fail(kind error, msg string, pos int) (Token, bool, error) {
	t.err = errs.NewSyntaxError(kind, msg, t.offset(pos))
	return Token{}, false, t.err
}

// incomplete rewinds to the start of a token that does not fit the window.
func (t *Tokenizer) incomplete(start int, msg string) (Token, bool, error) {
	t.pos = start
	if t.final {
		return t.fail(errs.ErrUnexpectedEndOfInput, msg, start)
	}

	return Token{}, false, nil
}

func (t *Tokenizer) closeContainer(c byte) Token {
	tok := Token{
		Kind:   KindObjectEnd,
		Depth:  int(t.state.depth),
		Value:  t.buf[t.pos : t.pos+1],
		Offset: t.offset(t.pos),
	}
	if c == ']' {
		tok.Kind = KindArrayEnd
	}
	t.pos++
	t.state.pop()

	return tok
}

func (t *Tokenizer) lexValue(c byte) (Token, bool, error) {
	switch c {
	case '{', '[':
		if !t.state.push(c == '{') {
			return t.fail(errs.ErrMalformedInput, "exceeded max depth of "+strconv.Itoa(MaxDepth), t.pos)
		}
		tok := Token{
			Kind:   KindObjectStart,
			Depth:  int(t.state.depth),
			Value:  t.buf[t.pos : t.pos+1],
			Offset: t.offset(t.pos),
		}
		t.state.expect = expectKeyOrEnd
		if c == '[' {
			tok.Kind = KindArrayStart
			t.state.expect = expectValueOrEnd
		}
		t.pos++

		return tok, true, nil
	case '"':
		return t.lexString(KindString)
	case 't':
		return t.lexLiteral(KindTrue, "true")
	case 'f':
		return t.lexLiteral(KindFalse, "false")
	case 'n':
		return t.lexLiteral(KindNull, "null")
	}

	if c == '-' || c-'0' < 10 {
		return t.lexNumber()
	}

	return t.fail(errs.ErrMalformedInput, "invalid character "+quoteByte(c)+" looking for beginning of value", t.pos)
}

func (t *Tokenizer) lexString(kind TokenKind) (Token, bool, error) {
	start := t.pos
	escaped := false

	for i := start + 1; i < len(t.buf); {
		c := t.buf[i]
		switch {
		case c == '"':
			tok := Token{
				Kind:    kind,
				Depth:   int(t.state.depth),
				Value:   t.buf[start+1 : i],
				Escaped: escaped,
				Offset:  t.offset(start),
			}
			t.pos = i + 1
			if kind == KindPropertyName {
				t.state.expect = expectColon
			} else {
				t.state.afterValue()
			}

			return tok, true, nil
		case c == '\\':
			n, valid := escapeLen(t.buf[i:])
			if !valid {
				return t.fail(errs.ErrMalformedInput, "invalid escape sequence in string literal", i)
			}
			if n == 0 {
				return t.incomplete(start, "string literal not terminated")
			}
			escaped = true
			i += n
		case c < ' ':
			return t.fail(errs.ErrMalformedInput, "invalid control character "+quoteByte(c)+" in string literal", i)
		default:
			i++
		}
	}

	return t.incomplete(start, "string literal not terminated")
}

// escapeLen validates the escape sequence at the start of b.
// It returns 0 with valid set when b ends before the sequence does.
func escapeLen(b []byte) (int, bool) {
	if len(b) < 2 {
		return 0, true
	}

	switch b[1] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return 2, true
	case 'u':
		for i := 2; i < len(b) && i < 6; i++ {
			if !isHex[b[i]] {
				return 0, false
			}
		}
		if len(b) < 6 {
			return 0, true
		}

		return 6, true
	default:
		return 0, false
	}
}

func (t *Tokenizer) lexLiteral(kind TokenKind, literal string) (Token, bool, error) {
	start := t.pos
	avail := t.buf[start:]
	n := min(len(avail), len(literal))
	if string(avail[:n]) != literal[:n] {
		return t.fail(errs.ErrMalformedInput, "invalid literal, expected "+literal, start)
	}
	if n < len(literal) {
		return t.incomplete(start, "literal "+literal+" truncated")
	}

	tok := Token{
		Kind:   kind,
		Depth:  int(t.state.depth),
		Value:  avail[:len(literal)],
		Offset: t.offset(start),
	}
	t.pos += len(literal)
	t.state.afterValue()

	return tok, true, nil
}

func (t *Tokenizer) lexNumber() (Token, bool, error) {
	start := t.pos
	end := start
	for end < len(t.buf) && isNumberByte[t.buf[end]] {
		end++
	}
	// a number touching the window edge may continue in the next chunk
	if end == len(t.buf) && !t.final {
		return Token{}, false, nil
	}

	span := t.buf[start:end]
	val, isInt, ok := parseNumber(span)
	if !ok {
		return t.fail(errs.ErrMalformedInput, "invalid number literal "+strconv.Quote(string(span)), start)
	}

	tok := Token{
		Kind:   KindNumber,
		Depth:  int(t.state.depth),
		Value:  span,
		Int:    val,
		IsInt:  isInt,
		Offset: t.offset(start),
	}
	t.pos = end
	t.state.afterValue()

	return tok, true, nil
}

// parseNumber validates a JSON number and decodes it when it is an integer
// that fits in int64. Fractions, exponents and overflowing integers are
// valid but report isInt false.
func parseNumber(b []byte) (val int64, isInt bool, ok bool) {
	i := 0
	neg := false
	if i < len(b) && b[i] == '-' {
		neg = true
		i++
	}
	if i >= len(b) {
		return 0, false, false
	}

	intStart := i
	switch {
	case b[i] == '0':
		i++
	case b[i] >= '1' && b[i] <= '9':
		for i < len(b) && b[i]-'0' < 10 {
			i++
		}
	default:
		return 0, false, false
	}
	intEnd := i

	isInt = true
	if i < len(b) && b[i] == '.' {
		isInt = false
		i++
		digits := i
		for i < len(b) && b[i]-'0' < 10 {
			i++
		}
		if i == digits {
			return 0, false, false
		}
	}
	if i < len(b) && b[i]|0x20 == 'e' {
		isInt = false
		i++
		if i < len(b) && (b[i] == '+' || b[i] == '-') {
			i++
		}
		digits := i
		for i < len(b) && b[i]-'0' < 10 {
			i++
		}
		if i == digits {
			return 0, false, false
		}
	}
	if i != len(b) {
		return 0, false, false
	}
	if !isInt {
		return 0, false, true
	}

	var u64 uint64
	for _, c := range b[intStart:intEnd] {
		d := uint64(c - '0')
		if u64 > (math.MaxUint64-d)/10 {
			return 0, false, true
		}
		u64 = u64*10 + d
	}

	sign, fits := addSign(u64, neg)
	if !fits {
		return 0, false, true
	}

	return sign, true, true
}

func addSign(u64 uint64, neg bool) (int64, bool) {
	const over = 1 << 63
	if !neg && u64 >= over {
		return 0, false
	}
	if neg && u64 > over {
		return 0, false
	}
	if neg {
		return int64(-u64), true
	}

	return int64(u64), true
}

func quoteByte(c byte) string {
	return strconv.QuoteRune(rune(c))
}
