package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/rollberry/statestore"
	"github.com/blockberries/rollberry/types"
	"github.com/blockberries/rollberry/witness"
)

func newCommitted(t *testing.T) *CommittedStore {
	t.Helper()
	engine, err := statestore.NewMemoryIAVLStore(100)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	store, err := NewCommittedStore(engine)
	require.NoError(t, err)
	return store
}

func TestWorkingSetReadYourWrites(t *testing.T) {
	ws := NewWorkingSet(newCommitted(t), nil)

	key := types.StorageKey("k")

	_, found, err := ws.Read(key)
	require.NoError(t, err)
	require.False(t, found)

	ws.Write(key, types.StorageValue("v"))

	value, found, err := ws.Read(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.StorageValue("v"), value)

	ws.Delete(key)

	_, found, err = ws.Read(key)
	require.NoError(t, err)
	require.False(t, found)
}

func TestWorkingSetReadCache(t *testing.T) {
	store := newCommitted(t)
	rec := witness.New()
	ws := NewWorkingSet(store, rec)

	key := types.StorageKey("k")

	// Repeated reads of the same key are recorded once
	for i := 0; i < 3; i++ {
		_, found, err := ws.Read(key)
		require.NoError(t, err)
		require.False(t, found)
	}
	require.Equal(t, 1, rec.Len())

	// A write does not add witness entries
	ws.Write(key, types.StorageValue("v"))
	_, _, err := ws.Read(key)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Len())
}

func TestWorkingSetWitnessOrder(t *testing.T) {
	store := newCommitted(t)
	rec := witness.New()
	ws := NewWorkingSet(store, rec)

	// Read order, not key order, determines the witness
	for _, k := range []string{"zz", "aa", "mm"} {
		_, _, err := ws.Read(types.StorageKey(k))
		require.NoError(t, err)
	}

	entries := rec.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, types.StorageKey("zz"), entries[0].Key)
	require.Equal(t, types.StorageKey("aa"), entries[1].Key)
	require.Equal(t, types.StorageKey("mm"), entries[2].Key)
	for _, e := range entries {
		require.False(t, e.Present)
	}
}

func TestWorkingSetCheckpointRevert(t *testing.T) {
	ws := NewWorkingSet(newCommitted(t), nil)

	ws.Write(types.StorageKey("keep"), types.StorageValue("1"))

	cp := ws.Checkpoint()
	ws.Write(types.StorageKey("drop"), types.StorageValue("2"))
	ws.Write(types.StorageKey("keep"), types.StorageValue("overwritten"))
	ws.Delete(types.StorageKey("keep"))

	require.NoError(t, ws.Revert(cp))

	// State equals the moment the checkpoint was taken
	value, found, err := ws.Read(types.StorageKey("keep"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.StorageValue("1"), value)

	_, found, err = ws.Read(types.StorageKey("drop"))
	require.NoError(t, err)
	require.False(t, found)

	require.Equal(t, 1, ws.Dirty())
}

func TestWorkingSetNestedCheckpoints(t *testing.T) {
	ws := NewWorkingSet(newCommitted(t), nil)

	outer := ws.Checkpoint()
	ws.Write(types.StorageKey("a"), types.StorageValue("1"))

	inner := ws.Checkpoint()
	ws.Write(types.StorageKey("b"), types.StorageValue("2"))

	require.NoError(t, ws.Revert(inner))
	require.Equal(t, 1, ws.Dirty())

	require.NoError(t, ws.Revert(outer))
	require.Equal(t, 0, ws.Dirty())
}

func TestWorkingSetRevertInvalidCheckpoint(t *testing.T) {
	ws := NewWorkingSet(newCommitted(t), nil)
	require.ErrorIs(t, ws.Revert(Checkpoint(5)), types.ErrNoCheckpoint)
	require.ErrorIs(t, ws.Revert(Checkpoint(-1)), types.ErrNoCheckpoint)
}

func TestWorkingSetRelease(t *testing.T) {
	ws := NewWorkingSet(newCommitted(t), nil)

	outer := ws.Checkpoint()
	ws.Write(types.StorageKey("a"), types.StorageValue("1"))

	inner := ws.Checkpoint()
	ws.Write(types.StorageKey("b"), types.StorageValue("2"))
	require.NoError(t, ws.Release(inner))

	// Released writes still unwind when an enclosing checkpoint reverts.
	require.NoError(t, ws.Revert(outer))
	require.Equal(t, 0, ws.Dirty())

	require.ErrorIs(t, ws.Release(Checkpoint(9)), types.ErrNoCheckpoint)
}

func TestWorkingSetFlush(t *testing.T) {
	store := newCommitted(t)
	prev := store.Root()

	ws := NewWorkingSet(store, nil)
	ws.Write(types.StorageKey("k1"), types.StorageValue("v1"))
	ws.Write(types.StorageKey("k2"), types.StorageValue("v2"))

	root, err := ws.Flush()
	require.NoError(t, err)
	require.False(t, root.Equal(prev))
	require.Equal(t, 0, ws.Dirty())
	require.Equal(t, root, store.Root())

	// Committed data is visible to a fresh working set
	ws2 := NewWorkingSet(store, nil)
	value, found, err := ws2.Read(types.StorageKey("k1"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.StorageValue("v1"), value)
}

func TestWorkingSetReturnsCopies(t *testing.T) {
	store := newCommitted(t)
	ws := NewWorkingSet(store, nil)
	ws.Write(types.StorageKey("k"), types.StorageValue("abc"))
	_, err := ws.Flush()
	require.NoError(t, err)

	ws2 := NewWorkingSet(store, nil)
	value, _, err := ws2.Read(types.StorageKey("k"))
	require.NoError(t, err)
	value[0] = 'X'

	again, _, err := ws2.Read(types.StorageKey("k"))
	require.NoError(t, err)
	require.Equal(t, types.StorageValue("abc"), again)
}
