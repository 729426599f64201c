package state

import (
	"github.com/blockberries/rollberry/commitment"
	"github.com/blockberries/rollberry/types"
	"github.com/blockberries/rollberry/witness"
)

// ReplayStore implements SlotStore for verifiable re-execution.
//
// It holds no real data: reads are satisfied strictly by consuming the
// recorded witness in order, and writes land in an in-memory overlay so
// later reads within the batch observe them, matching the committed
// store's read-your-writes semantics. Commit recomputes the slot root
// from {previous root, final overlay} alone, without the full key space.
type ReplayStore struct {
	root    types.Root
	cursor  *witness.Cursor
	overlay map[string]commitment.Entry
}

// NewReplayStore creates a replay store seeded with the previous slot
// root and the recorded witness.
func NewReplayStore(prevRoot types.Root, w *witness.Witness) *ReplayStore {
	return &ReplayStore{
		root:    prevRoot.Clone(),
		cursor:  w.Cursor(),
		overlay: make(map[string]commitment.Entry),
	}
}

// Get answers a read from the overlay if the key was written this batch,
// otherwise by consuming the next witness entry. A key that does not
// match the next recorded entry, or a read past the end of the witness,
// fails the slot with types.ErrWitnessMismatch / ErrWitnessExhausted.
func (s *ReplayStore) Get(key types.StorageKey) (types.StorageValue, bool, error) {
	if e, ok := s.overlay[string(key)]; ok {
		if e.Delete {
			return nil, false, nil
		}
		return e.Value.Clone(), true, nil
	}
	return s.cursor.Next(key)
}

// Stage buffers a write in the overlay.
func (s *ReplayStore) Stage(key types.StorageKey, value types.StorageValue) error {
	s.overlay[string(key)] = commitment.Entry{Key: key.Clone(), Value: value.Clone()}
	return nil
}

// StageDelete buffers a deletion in the overlay.
func (s *ReplayStore) StageDelete(key types.StorageKey) error {
	s.overlay[string(key)] = commitment.Entry{Key: key.Clone(), Delete: true}
	return nil
}

// Root returns the previous slot root the store was seeded with.
func (s *ReplayStore) Root() types.Root {
	return s.root.Clone()
}

// Commit computes the slot root from the previous root and the overlay,
// using the same chained write-set digest as the committed store.
func (s *ReplayStore) Commit() (types.Root, error) {
	if len(s.overlay) == 0 {
		return s.root.Clone(), nil
	}

	tree := commitment.NewTree()
	for _, e := range s.overlay {
		tree.Add(e)
	}
	newRoot := commitment.ChainRoot(s.root, tree.Root())

	s.root = newRoot
	s.overlay = make(map[string]commitment.Entry)
	return newRoot.Clone(), nil
}

// Discard drops the overlay. The replay store is ephemeral, so there is
// nothing else to release.
func (s *ReplayStore) Discard() error {
	s.overlay = make(map[string]commitment.Entry)
	return nil
}

// RemainingWitness returns the number of unconsumed witness entries.
// A fully verified slot consumes the witness exactly.
func (s *ReplayStore) RemainingWitness() int {
	return s.cursor.Remaining()
}
