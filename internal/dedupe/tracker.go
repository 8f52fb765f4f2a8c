// Package dedupe tracks which failed-entry identifiers were already reported.
package dedupe

// Tracker records identifiers keyed by their 64-bit hash.
//
// Identifiers sharing a hash are kept side by side and compared in full, so
// a hash collision never makes two different identifiers look equal.
type Tracker struct {
	ids        map[uint64][]string // hash → identifiers with that hash
	collisions int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		ids: make(map[uint64][]string),
	}
}

// Contains reports whether id was added before.
// It does not allocate, so callers can test scan-buffer bytes directly.
func (t *Tracker) Contains(id []byte, hash uint64) bool {
	for _, existing := range t.ids[hash] {
		if existing == string(id) {
			return true
		}
	}

	return false
}

// Add records id under hash. It returns false when id is already tracked.
func (t *Tracker) Add(id string, hash uint64) bool {
	bucket := t.ids[hash]
	for _, existing := range bucket {
		if existing == id {
			return false
		}
	}
	if len(bucket) > 0 {
		t.collisions++
	}

	t.ids[hash] = append(bucket, id)

	return true
}

// Collisions returns how many identifiers landed on an already-used hash.
func (t *Tracker) Collisions() int {
	return t.collisions
}

// Reset forgets all identifiers. Map capacity is retained.
func (t *Tracker) Reset() {
	for k := range t.ids {
		delete(t.ids, k)
	}
	t.collisions = 0
}
