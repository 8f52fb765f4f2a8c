package scanner

// TokenKind identifies the lexical class of a Token.
type TokenKind uint8

const (
	KindInvalid TokenKind = iota
	KindObjectStart
	KindObjectEnd
	KindArrayStart
	KindArrayEnd
	KindPropertyName
	KindString
	KindNumber
	KindTrue
	KindFalse
	KindNull
)

func (k TokenKind) String() string {
	switch k {
	case KindObjectStart:
		return "ObjectStart"
	case KindObjectEnd:
		return "ObjectEnd"
	case KindArrayStart:
		return "ArrayStart"
	case KindArrayEnd:
		return "ArrayEnd"
	case KindPropertyName:
		return "PropertyName"
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindTrue:
		return "True"
	case KindFalse:
		return "False"
	case KindNull:
		return "Null"
	default:
		return "Invalid"
	}
}

// Token is a single lexical unit produced by the Tokenizer.
//
// Value borrows from the tokenizer's buffer and is only valid until that
// buffer is written again. Callers must copy anything they keep.
type Token struct {
	Kind TokenKind

	// Depth is the number of enclosing containers. Members of the top-level
	// object are at depth 1; a container start and its matching end share the
	// depth of the container they open.
	Depth int

	// Value holds the raw bytes of strings (without quotes, still escaped),
	// property names, numbers and literals.
	Value []byte

	// Escaped reports whether a string value contains backslash escapes.
	Escaped bool

	// Int holds the value of an integral number when IsInt is true.
	Int   int64
	IsInt bool

	// Offset is the absolute position of the token's first byte in the stream.
	Offset int64
}

// IsBool reports whether the token is a true or false literal.
func (t Token) IsBool() bool {
	return t.Kind == KindTrue || t.Kind == KindFalse
}
