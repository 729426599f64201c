package witness

import (
	"github.com/blockberries/rollberry/types"
)

// Store defines the interface for witness persistence.
//
// Witnesses are produced per slot by native execution and transported to
// the verification environment; the archive is the durable hand-off
// point. Implementations must be safe for concurrent use.
type Store interface {
	// SaveWitness persists the witness for a slot.
	// Returns types.ErrWitnessExists if the slot already has one.
	SaveWitness(slot types.Slot, w *Witness) error

	// LoadWitness retrieves the witness for a slot.
	// Returns types.ErrWitnessNotFound if the slot has none.
	LoadWitness(slot types.Slot) (*Witness, error)

	// HasWitness checks if a witness exists for a slot.
	HasWitness(slot types.Slot) bool

	// MaxSlot returns the highest slot with an archived witness.
	// Returns 0 if the archive is empty.
	MaxSlot() types.Slot

	// Prune removes witnesses older than MaxSlot() - keepRecent.
	// Returns the number of witnesses removed.
	Prune(keepRecent int64) (int, error)

	// Close closes the store and releases resources.
	Close() error
}
