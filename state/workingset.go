package state

import (
	"fmt"
	"sort"

	"github.com/blockberries/rollberry/types"
	"github.com/blockberries/rollberry/witness"
)

// WorkingSet mediates all state access during one batch of operations.
//
// Reads check the write buffer first (read-your-own-writes), then the
// read cache, then fall through to the backend; the first backend read
// of each key is recorded into the witness when one is attached. Writes
// only touch the in-memory buffer until Flush.
//
// A WorkingSet is exclusively owned by the runner for the duration of
// one slot and is not safe for concurrent use.
type WorkingSet struct {
	store    SlotStore
	recorder *witness.Witness

	cache  map[string]cacheEntry
	writes map[string]writeEntry
	undo   []undoRecord
}

type cacheEntry struct {
	value types.StorageValue
	found bool
}

type writeEntry struct {
	value   types.StorageValue
	deleted bool
}

type undoRecord struct {
	key     string
	prev    writeEntry
	existed bool
}

// Checkpoint marks a position in the write buffer that a failed
// operation can be rolled back to.
type Checkpoint int

// NewWorkingSet creates a working set over a slot store.
// recorder may be nil; when set, every first backend read of the batch
// is appended to it in read order.
func NewWorkingSet(store SlotStore, recorder *witness.Witness) *WorkingSet {
	return &WorkingSet{
		store:    store,
		recorder: recorder,
		cache:    make(map[string]cacheEntry),
		writes:   make(map[string]writeEntry),
	}
}

// Read returns the value for a key, or found=false if it is absent.
// The returned slice is the caller's to keep.
func (ws *WorkingSet) Read(key types.StorageKey) (types.StorageValue, bool, error) {
	k := string(key)

	if w, ok := ws.writes[k]; ok {
		if w.deleted {
			return nil, false, nil
		}
		return w.value.Clone(), true, nil
	}

	if c, ok := ws.cache[k]; ok {
		return c.value.Clone(), c.found, nil
	}

	value, found, err := ws.store.Get(key)
	if err != nil {
		return nil, false, err
	}

	ws.cache[k] = cacheEntry{value: value.Clone(), found: found}
	if ws.recorder != nil {
		ws.recorder.Record(key, value, found)
	}
	return value.Clone(), found, nil
}

// Write buffers a value for a key. The backend is untouched until Flush.
func (ws *WorkingSet) Write(key types.StorageKey, value types.StorageValue) {
	if value == nil {
		value = types.StorageValue{}
	}
	ws.set(string(key), writeEntry{value: value.Clone()})
}

// Delete buffers a deletion for a key.
func (ws *WorkingSet) Delete(key types.StorageKey) {
	ws.set(string(key), writeEntry{deleted: true})
}

func (ws *WorkingSet) set(k string, e writeEntry) {
	prev, existed := ws.writes[k]
	ws.undo = append(ws.undo, undoRecord{key: k, prev: prev, existed: existed})
	ws.writes[k] = e
}

// Checkpoint returns a marker for the current write buffer position.
func (ws *WorkingSet) Checkpoint() Checkpoint {
	return Checkpoint(len(ws.undo))
}

// Revert rolls the write buffer back to a checkpoint, discarding every
// write made after it as a unit. The read cache is untouched: cached
// reads stay valid because reverted writes never reached the backend.
func (ws *WorkingSet) Revert(cp Checkpoint) error {
	if cp < 0 || int(cp) > len(ws.undo) {
		return fmt.Errorf("checkpoint %d of %d: %w", cp, len(ws.undo), types.ErrNoCheckpoint)
	}

	for i := len(ws.undo) - 1; i >= int(cp); i-- {
		rec := ws.undo[i]
		if rec.existed {
			ws.writes[rec.key] = rec.prev
		} else {
			delete(ws.writes, rec.key)
		}
	}
	ws.undo = ws.undo[:cp]
	return nil
}

// Release accepts a checkpoint's writes: the checkpoint is no longer a
// revert target. The undo journal is kept so reverting to an earlier
// checkpoint still unwinds these writes.
func (ws *WorkingSet) Release(cp Checkpoint) error {
	if cp < 0 || int(cp) > len(ws.undo) {
		return fmt.Errorf("checkpoint %d of %d: %w", cp, len(ws.undo), types.ErrNoCheckpoint)
	}
	return nil
}

// Dirty returns the number of keys with buffered writes.
func (ws *WorkingSet) Dirty() int {
	return len(ws.writes)
}

// Witness returns the attached witness recorder, or nil.
func (ws *WorkingSet) Witness() *witness.Witness {
	return ws.recorder
}

// Flush stages every buffered write on the backend in deterministic
// order and commits, returning the new slot root. The write buffer is
// cleared on success; the working set must not be reused after Flush.
func (ws *WorkingSet) Flush() (types.Root, error) {
	keys := make([]string, 0, len(ws.writes))
	for k := range ws.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := ws.writes[k]
		key := types.StorageKey(k)
		var err error
		if e.deleted {
			err = ws.store.StageDelete(key)
		} else {
			err = ws.store.Stage(key, e.value)
		}
		if err != nil {
			return nil, err
		}
	}

	root, err := ws.store.Commit()
	if err != nil {
		return nil, err
	}

	ws.writes = make(map[string]writeEntry)
	ws.undo = nil
	ws.cache = make(map[string]cacheEntry)
	return root, nil
}
