// Package witness provides witness capture, replay, and persistence.
//
// A witness is the ordered sequence of (key, value-or-absence) pairs read
// from committed state during native execution of one slot, in first-read
// order. Verification mode replays the same batch against the witness
// instead of the real store; any divergence in key order or values means
// the execution cannot be trusted.
package witness

import (
	"fmt"

	"github.com/blockberries/rollberry/types"
)

// Entry is one recorded read: a key and the value observed for it, or its
// absence.
type Entry struct {
	// Key is the storage key that was read.
	Key types.StorageKey

	// Value is the value observed. nil when the key was absent.
	Value types.StorageValue

	// Present is false when the key was absent from committed state.
	Present bool
}

// Witness is an ordered sequence of recorded reads for one slot.
type Witness struct {
	entries []Entry
}

// New creates a new empty witness.
func New() *Witness {
	return &Witness{}
}

// FromEntries creates a witness from recorded entries.
func FromEntries(entries []Entry) *Witness {
	return &Witness{entries: entries}
}

// Record appends a read observation.
// Callers record each distinct key once, on its first read of the batch;
// the working set's read cache enforces that.
func (w *Witness) Record(key types.StorageKey, value types.StorageValue, present bool) {
	w.entries = append(w.entries, Entry{
		Key:     key.Clone(),
		Value:   value.Clone(),
		Present: present,
	})
}

// Len returns the number of recorded entries.
func (w *Witness) Len() int {
	return len(w.entries)
}

// Entries returns the recorded entries in read order.
func (w *Witness) Entries() []Entry {
	return w.entries
}

// Cursor returns a replay cursor positioned at the first entry.
func (w *Witness) Cursor() *Cursor {
	return &Cursor{witness: w}
}

// Cursor consumes a witness strictly in order during replay.
type Cursor struct {
	witness *Witness
	next    int
}

// Next consumes the next unconsumed entry, which must be for the given
// key. Returns types.ErrWitnessExhausted when no entries remain, or
// types.ErrWitnessMismatch when the next recorded key differs from the
// requested one. Both are fatal to the slot being verified.
func (c *Cursor) Next(key types.StorageKey) (types.StorageValue, bool, error) {
	if c.next >= len(c.witness.entries) {
		return nil, false, fmt.Errorf("read of %s: %w", key, types.ErrWitnessExhausted)
	}

	entry := c.witness.entries[c.next]
	if !entry.Key.Equal(key) {
		return nil, false, fmt.Errorf("read of %s but recorded %s at position %d: %w",
			key, entry.Key, c.next, types.ErrWitnessMismatch)
	}

	c.next++
	return entry.Value, entry.Present, nil
}

// Remaining returns the number of unconsumed entries.
func (c *Cursor) Remaining() int {
	return len(c.witness.entries) - c.next
}
