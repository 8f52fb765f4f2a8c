package scanner

import (
	"github.com/arloliu/bulkscan/errs"
)

// Property names and depths of the bulk response schema:
//
//	{"took":30,"errors":true,"items":[{"index":{"_id":"1","status":400}}]}
//	 ^ depth 1                        ^ 2     ^ 3         ^ 4
//
// The per-entry operation wrapper ("index", "create", "update", "delete")
// sits at a fixed depth between the items array and the entry object.
const (
	failureFlagField = "errors"
	entriesField     = "items"
	idField          = "_id"
	statusField      = "status"

	topDepth     = 1
	entriesDepth = 2
	wrapperDepth = 3
	entryDepth   = 4
)

// DefaultTargetStatus is the entry status reported as failed by default.
const DefaultTargetStatus = 400

type phase uint8

const (
	phaseSeekingFlag phase = iota
	phaseSeekingArray
	phaseInEntries
	phaseInEntryFields
	phaseNoFailures
	phaseExhausted
)

func (p phase) String() string {
	switch p {
	case phaseSeekingFlag:
		return "SeekingFailureFlag"
	case phaseSeekingArray:
		return "SeekingArray"
	case phaseInEntries:
		return "InEntries"
	case phaseInEntryFields:
		return "InEntryFields"
	case phaseNoFailures:
		return "NoFailures"
	case phaseExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

// topField is the top-level property whose value comes next.
type topField uint8

const (
	topNone topField = iota
	topFlag
	topEntries
	topOther
)

// entryField is the entry property whose value comes next.
type entryField uint8

const (
	entryNone entryField = iota
	entryID
	entryStatus
)

// pathTracker follows the token stream through the bulk response schema and
// feeds matching identifiers to a Collector.
//
// The identifier candidate of the current entry is copied into the
// tracker's own scratch slice as soon as it is seen, so nothing it holds
// refers to the scan buffer once the current chunk is done.
type pathTracker struct {
	phase        phase
	started      bool
	pendingTop   topField
	flagSeen     bool
	failures     bool
	entriesDone  bool
	targetStatus int64
	collector    *Collector

	pendingField  entryField
	candidate     []byte
	idEscaped     bool
	haveID        bool
	statusMatched bool
	committed     bool

	nameScratch []byte
}

func newPathTracker(collector *Collector, targetStatus int64) *pathTracker {
	return &pathTracker{
		collector:    collector,
		targetStatus: targetStatus,
	}
}

// terminal reports whether the outcome is decided and no more input is needed.
func (p *pathTracker) terminal() bool {
	return p.phase == phaseNoFailures || p.phase == phaseExhausted
}

func (p *pathTracker) outcome() Outcome {
	if !p.failures {
		return Outcome{Success: true}
	}

	ids := p.collector.IDs()
	if ids == nil {
		ids = []string{}
	}

	return Outcome{Success: false, IDs: ids}
}

func (p *pathTracker) observe(tok Token) error {
	switch p.phase {
	case phaseInEntries:
		return p.observeEntries(tok)
	case phaseInEntryFields:
		return p.observeEntryFields(tok)
	case phaseNoFailures, phaseExhausted:
		return nil
	default:
		return p.observeTop(tok)
	}
}

func (p *pathTracker) observeTop(tok Token) error {
	if !p.started {
		if tok.Kind != KindObjectStart {
			return errs.NewSyntaxError(errs.ErrMalformedInput, "top-level value must be an object, found "+tok.Kind.String(), tok.Offset)
		}
		p.started = true

		return nil
	}

	switch {
	case tok.Depth == topDepth && tok.Kind == KindPropertyName:
		switch string(p.name(tok)) {
		case failureFlagField:
			p.pendingTop = topFlag
		case entriesField:
			p.pendingTop = topEntries
		default:
			p.pendingTop = topOther
		}
	case tok.Depth == topDepth && tok.Kind == KindObjectEnd:
		// document finished; an absent flag means success
		p.finish()
	case tok.Depth == topDepth, tok.Depth == entriesDepth && isContainerStart(tok.Kind):
		pending := p.pendingTop
		p.pendingTop = topNone
		switch pending {
		case topFlag:
			return p.observeFlag(tok)
		case topEntries:
			if tok.Kind != KindArrayStart {
				return errs.NewSyntaxError(errs.ErrMalformedInput, "property "+entriesField+" must be an array, found "+tok.Kind.String(), tok.Offset)
			}
			p.phase = phaseInEntries
		}
	}

	return nil
}

func (p *pathTracker) observeFlag(tok Token) error {
	if !tok.IsBool() {
		return errs.NewSyntaxError(errs.ErrMalformedInput, "property "+failureFlagField+" must be a boolean, found "+tok.Kind.String(), tok.Offset)
	}

	p.flagSeen = true
	p.failures = tok.Kind == KindTrue
	switch {
	case !p.failures:
		// matches gathered from an items array preceding the flag are void
		p.collector.Reset()
		p.phase = phaseNoFailures
	case p.entriesDone:
		p.phase = phaseExhausted
	default:
		p.phase = phaseSeekingArray
	}

	return nil
}

func (p *pathTracker) finish() {
	if p.failures {
		p.phase = phaseExhausted
		return
	}
	p.collector.Reset()
	p.phase = phaseNoFailures
}

func (p *pathTracker) observeEntries(tok Token) error {
	switch {
	case tok.Depth == entriesDepth && tok.Kind == KindArrayEnd:
		p.entriesDone = true
		if p.flagSeen {
			p.phase = phaseExhausted
		} else {
			p.phase = phaseSeekingFlag
		}
	case tok.Depth == entryDepth && tok.Kind == KindObjectStart:
		p.resetEntry()
		p.phase = phaseInEntryFields
	}

	return nil
}

func (p *pathTracker) observeEntryFields(tok Token) error {
	if tok.Depth > entryDepth {
		// nested values such as "error" or "_shards" are skipped
		if tok.Depth == entryDepth+1 && isContainerStart(tok.Kind) {
			p.pendingField = entryNone
		}

		return nil
	}

	switch tok.Kind {
	case KindObjectEnd:
		p.resetEntry()
		p.phase = phaseInEntries

		return nil
	case KindPropertyName:
		switch string(p.name(tok)) {
		case idField:
			p.pendingField = entryID
		case statusField:
			p.pendingField = entryStatus
		default:
			p.pendingField = entryNone
		}

		return nil
	}

	field := p.pendingField
	p.pendingField = entryNone
	switch {
	case field == entryID && tok.Kind == KindString:
		p.candidate = append(p.candidate[:0], tok.Value...)
		p.idEscaped = tok.Escaped
		p.haveID = true
	case field == entryStatus && tok.Kind == KindNumber:
		p.statusMatched = tok.IsInt && tok.Int == p.targetStatus
	default:
		return nil
	}

	if p.haveID && p.statusMatched && !p.committed {
		p.committed = true
		return p.collector.Record(p.candidate, p.idEscaped)
	}

	return nil
}

func (p *pathTracker) resetEntry() {
	p.pendingField = entryNone
	p.candidate = p.candidate[:0]
	p.idEscaped = false
	p.haveID = false
	p.statusMatched = false
	p.committed = false
}

// name returns the decoded property name of tok.
func (p *pathTracker) name(tok Token) []byte {
	if !tok.Escaped {
		return tok.Value
	}
	p.nameScratch = appendUnescaped(p.nameScratch[:0], tok.Value)

	return p.nameScratch
}

func isContainerStart(k TokenKind) bool {
	return k == KindObjectStart || k == KindArrayStart
}
