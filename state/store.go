// Package state provides the per-slot storage backends and the working
// set that mediates all state access during a batch.
//
// Two backends implement the same SlotStore contract: CommittedStore
// executes against durable merkleized storage and lets the working set
// record a witness; ReplayStore holds no real data and answers reads
// strictly from a previously recorded witness. Given the same previous
// root and the same operation sequence, both commit to the same root.
package state

import (
	"github.com/blockberries/rollberry/types"
)

// SlotStore is a storage backend bound to one slot.
//
// Reads see committed state; writes are staged and take effect only at
// Commit, which applies them atomically and returns the new slot root.
// A SlotStore is exclusively owned by one runner for the duration of a
// slot and must be committed or discarded before the runner goes idle.
type SlotStore interface {
	// Get reads a key from the backing state.
	// The second return is false when the key is absent.
	Get(key types.StorageKey) (types.StorageValue, bool, error)

	// Stage buffers a write for the current batch.
	Stage(key types.StorageKey, value types.StorageValue) error

	// StageDelete buffers a deletion for the current batch.
	StageDelete(key types.StorageKey) error

	// Root returns the slot root of the last committed slot.
	Root() types.Root

	// Commit applies all staged writes atomically and returns the new
	// slot root. It never partially applies: on error the staged writes
	// are rolled back and the previous root stands.
	Commit() (types.Root, error)

	// Discard drops all staged writes without committing.
	Discard() error
}

// metaRootKey stores the current slot root inside the durable engine.
// It lives under module id 0, which the schema registry reserves, so it
// can never collide with a derived module key.
var metaRootKey = []byte{0, 0, 0, 0, 0, 0, 0, 0, 'r', 'o', 'o', 't'}
