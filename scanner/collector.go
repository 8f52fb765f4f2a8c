package scanner

import (
	"fmt"

	"github.com/arloliu/bulkscan/errs"
	"github.com/arloliu/bulkscan/internal/dedupe"
	"github.com/arloliu/bulkscan/internal/hash"
	"github.com/arloliu/bulkscan/internal/options"
)

// CollectorOption configures a Collector.
type CollectorOption = options.Option[*Collector]

// WithDistinct makes the collector drop identifiers it already recorded.
// A bulk request may touch the same document more than once, and retry
// logic usually wants each failed identifier once. Dropped duplicates do not
// count against the capacity.
func WithDistinct() CollectorOption {
	return options.NoError(func(c *Collector) {
		c.seen = dedupe.NewTracker()
	})
}

// Collector accumulates the identifiers of failed entries up to a fixed capacity.
//
// Identifiers are copied into owned strings at the moment they are recorded,
// never before. Recording past the capacity fails with errs.ErrOverflow
// rather than truncating, since a short list would misreport the failures.
type Collector struct {
	ids        []string
	capacity   int
	scratch    []byte
	seen       *dedupe.Tracker
	duplicates int
}

// NewCollector creates a collector holding at most capacity identifiers.
//
// Returns errs.ErrInvalidOption if capacity is negative or an option fails.
func NewCollector(capacity int, opts ...CollectorOption) (*Collector, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: negative capacity %d", errs.ErrInvalidOption, capacity)
	}

	c := &Collector{capacity: capacity}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	return c, nil
}

// Record stores an owned copy of id.
//
// Parameters:
//   - id: the raw string body as it appears in the document, borrowed
//   - escaped: whether id contains JSON escape sequences to decode
//
// Returns:
//   - error: errs.ErrOverflow when the collector is already full
func (c *Collector) Record(id []byte, escaped bool) error {
	if escaped {
		c.scratch = appendUnescaped(c.scratch[:0], id)
		id = c.scratch
	}

	var h uint64
	if c.seen != nil {
		h = hash.Bytes(id)
		if c.seen.Contains(id, h) {
			c.duplicates++
			return nil
		}
	}

	if len(c.ids) >= c.capacity {
		return fmt.Errorf("%w: capacity %d", errs.ErrOverflow, c.capacity)
	}

	owned := string(id)
	c.ids = append(c.ids, owned)
	if c.seen != nil {
		c.seen.Add(owned, h)
	}

	return nil
}

// IDs returns the recorded identifiers in recording order.
func (c *Collector) IDs() []string {
	return c.ids
}

// Len returns the number of recorded identifiers.
func (c *Collector) Len() int {
	return len(c.ids)
}

// Capacity returns the maximum number of identifiers the collector accepts.
func (c *Collector) Capacity() int {
	return c.capacity
}

// Duplicates returns how many identifiers WithDistinct dropped.
func (c *Collector) Duplicates() int {
	return c.duplicates
}

// HashCollisions returns how many distinct identifiers shared a hash with an
// earlier one. It is always zero without WithDistinct.
func (c *Collector) HashCollisions() int {
	if c.seen == nil {
		return 0
	}

	return c.seen.Collisions()
}

// Reset discards every recorded identifier.
func (c *Collector) Reset() {
	c.ids = nil
	c.duplicates = 0
	if c.seen != nil {
		c.seen.Reset()
	}
}
