// Package statestore provides the durable merkleized key-value engine
// under the committed store.
package statestore

import (
	"fmt"

	ics23 "github.com/cosmos/ics23/go"

	"github.com/blockberries/rollberry/types"
)

// StateStore defines the interface for versioned merkleized key-value
// storage. Implementations must be safe for concurrent use; the slot
// runner nevertheless holds exclusive ownership while a slot is open.
type StateStore interface {
	// Get retrieves the value for a key.
	// Returns nil, nil if the key does not exist.
	Get(key []byte) ([]byte, error)

	// Has checks if a key exists.
	Has(key []byte) (bool, error)

	// Set stores a key-value pair in the working tree.
	// The change is not persisted until Commit is called.
	Set(key []byte, value []byte) error

	// Delete removes a key from the working tree.
	// The change is not persisted until Commit is called.
	Delete(key []byte) error

	// Commit saves the current working tree as a new version.
	// Returns the tree hash and version number.
	Commit() (hash []byte, version int64, err error)

	// Rollback discards all uncommitted changes in the working tree,
	// restoring it to the last committed version.
	Rollback()

	// RootHash returns the hash of the working tree.
	RootHash() []byte

	// Version returns the latest committed version number.
	// Returns 0 if no versions have been committed.
	Version() int64

	// LoadVersion loads a specific version of the tree.
	// All subsequent operations will be based on this version.
	LoadVersion(version int64) error

	// GetProof returns a merkle proof for a key.
	// The proof can be used to verify the key's existence or non-existence.
	GetProof(key []byte) (*Proof, error)

	// Close closes the store and releases resources.
	Close() error
}

// Proof represents a merkle proof for a key in the state store.
// It can prove either the existence or non-existence of a key.
type Proof struct {
	// Key is the key this proof is for.
	Key []byte

	// Value is the value if the key exists, nil otherwise.
	Value []byte

	// Exists indicates whether the key exists in the tree.
	Exists bool

	// TreeHash is the hash of the tree this proof was generated from.
	TreeHash []byte

	// Version is the version of the tree this proof was generated from.
	Version int64

	// ProofBytes contains the serialized ICS23 commitment proof.
	ProofBytes []byte
}

// Verify verifies the proof against the given tree hash.
// Returns true if the proof is valid, false otherwise.
func (p *Proof) Verify(treeHash []byte) (bool, error) {
	if p == nil || len(p.ProofBytes) == 0 {
		return false, types.ErrInvalidProof
	}

	var commitment ics23.CommitmentProof
	if err := commitment.Unmarshal(p.ProofBytes); err != nil {
		return false, fmt.Errorf("unmarshaling proof: %w", types.ErrInvalidProof)
	}

	if p.Exists {
		return ics23.VerifyMembership(ics23.IavlSpec, treeHash, &commitment, p.Key, p.Value), nil
	}
	return ics23.VerifyNonMembership(ics23.IavlSpec, treeHash, &commitment, p.Key), nil
}
