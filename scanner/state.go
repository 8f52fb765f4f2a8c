package scanner

// MaxDepth is the deepest container nesting the tokenizer tracks.
const MaxDepth = 64

// expectation is the lexical position of the tokenizer between tokens.
type expectation uint8

const (
	expectValue      expectation = iota // document start or after ':'
	expectValueOrEnd                    // after '['
	expectKey                           // after ',' inside an object
	expectKeyOrEnd                      // after '{'
	expectColon                         // after a property name
	expectCommaOrEnd                    // after a complete member or element
	expectDone                          // top-level value finished
)

// ContinuationState carries what the Tokenizer needs to resume on the next
// chunk. It is a plain value: copy it freely and thread it from one
// Tokenizer to the next together with the unconsumed bytes.
//
// The zero value is the state at the start of a document.
type ContinuationState struct {
	stack  uint64 // bit i set: container at depth i+1 is an object
	depth  uint8
	expect expectation
	offset int64 // absolute stream offset of the next unconsumed byte
}

// Depth returns the number of open containers.
func (s ContinuationState) Depth() int {
	return int(s.depth)
}

// Offset returns the absolute stream offset of the first unconsumed byte.
func (s ContinuationState) Offset() int64 {
	return s.offset
}

// Done reports whether the top-level value has been fully tokenized.
func (s ContinuationState) Done() bool {
	return s.expect == expectDone
}

func (s *ContinuationState) inObject() bool {
	return s.depth > 0 && s.stack>>(s.depth-1)&1 == 1
}

func (s *ContinuationState) push(object bool) bool {
	if s.depth >= MaxDepth {
		return false
	}
	if object {
		s.stack |= 1 << s.depth
	} else {
		s.stack &^= 1 << s.depth
	}
	s.depth++

	return true
}

func (s *ContinuationState) pop() {
	s.depth--
	s.afterValue()
}

func (s *ContinuationState) afterValue() {
	if s.depth == 0 {
		s.expect = expectDone
	} else {
		s.expect = expectCommaOrEnd
	}
}
