// Package commitment computes slot commitment roots.
//
// A slot's root is a chained digest over the batch's final write-set:
//
//	root_N = sha256(root_{N-1} || merkleRoot(write-set))
//
// The write-set merkle tree is built over canonical encodings of the
// batch's final writes, sorted by key. Because the root depends only on
// the previous root and the final writes, a verification-mode store can
// recompute it from its overlay alone, without the full key space.
package commitment

import (
	"encoding/binary"
	"sort"

	"github.com/blockberries/rollberry/types"
)

// Entry is one final write of a committed batch.
// A delete is an entry with Delete set; its value is ignored.
type Entry struct {
	Key    types.StorageKey
	Value  types.StorageValue
	Delete bool
}

// Tree is an in-memory merkle tree over write-set entries.
// Entries are canonicalized (sorted by key, last write wins) before
// hashing, so insertion order does not affect the root.
type Tree struct {
	entries map[string]Entry
}

// NewTree creates a new empty write-set tree.
func NewTree() *Tree {
	return &Tree{
		entries: make(map[string]Entry),
	}
}

// Add records a write. A later Add for the same key replaces the earlier
// one; only the final write of a batch is committed.
func (t *Tree) Add(e Entry) {
	t.entries[string(e.Key)] = e
}

// Size returns the number of distinct keys in the write-set.
func (t *Tree) Size() int {
	return len(t.entries)
}

// Root computes the merkle root of the write-set.
// Returns nil for an empty set.
func (t *Tree) Root() types.Hash {
	n := len(t.entries)
	if n == 0 {
		return nil
	}

	keys := make([]string, 0, n)
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	level := make([]types.Hash, 0, n)
	for _, k := range keys {
		level = append(level, leafHash(t.entries[k]))
	}

	// Build tree bottom-up
	for len(level) > 1 {
		nextLevel := make([]types.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				nextLevel = append(nextLevel, types.HashConcat(level[i], level[i+1]))
			} else {
				// Odd node, promote to next level
				nextLevel = append(nextLevel, level[i])
			}
		}
		level = nextLevel
	}
	return level[0]
}

// ChainRoot folds a write-set root into the previous slot root.
// An empty write-set leaves the chain unchanged, which is what makes
// commit idempotent when nothing was written.
func ChainRoot(prev types.Root, writeSetRoot types.Hash) types.Root {
	if len(writeSetRoot) == 0 {
		return prev.Clone()
	}
	return types.HashConcat(prev, writeSetRoot)
}

// NextRoot computes the chained root for a batch of final writes.
func NextRoot(prev types.Root, entries []Entry) types.Root {
	tree := NewTree()
	for _, e := range entries {
		tree.Add(e)
	}
	return ChainRoot(prev, tree.Root())
}

// leafHash hashes the canonical encoding of one entry:
// u32 keyLen || key || u8 presence || u32 valLen || value.
// Deletes encode as presence 0 with no value, so a delete-only batch
// still moves the root.
func leafHash(e Entry) types.Hash {
	size := 4 + len(e.Key) + 1
	if !e.Delete {
		size += 4 + len(e.Value)
	}
	buf := make([]byte, 0, size)

	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], uint32(len(e.Key)))
	buf = append(buf, scratch[:]...)
	buf = append(buf, e.Key...)

	if e.Delete {
		buf = append(buf, 0)
	} else {
		buf = append(buf, 1)
		binary.BigEndian.PutUint32(scratch[:], uint32(len(e.Value)))
		buf = append(buf, scratch[:]...)
		buf = append(buf, e.Value...)
	}
	return types.HashBytes(buf)
}
