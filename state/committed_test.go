package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/rollberry/statestore"
	"github.com/blockberries/rollberry/types"
)

func TestCommittedStoreFreshStartsAtGenesis(t *testing.T) {
	store := newCommitted(t)
	require.Equal(t, types.GenesisRoot(), store.Root())
}

func TestCommittedStoreCommit(t *testing.T) {
	store := newCommitted(t)
	prev := store.Root()

	require.NoError(t, store.Stage(types.StorageKey("k"), types.StorageValue("v")))

	root, err := store.Commit()
	require.NoError(t, err)
	require.False(t, root.Equal(prev))
	require.Equal(t, root, store.Root())

	value, found, err := store.Get(types.StorageKey("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.StorageValue("v"), value)
}

func TestCommittedStoreCommitIdempotent(t *testing.T) {
	store := newCommitted(t)

	require.NoError(t, store.Stage(types.StorageKey("k"), types.StorageValue("v")))
	root1, err := store.Commit()
	require.NoError(t, err)

	// No intervening writes: same root both times
	root2, err := store.Commit()
	require.NoError(t, err)
	require.Equal(t, root1, root2)
}

func TestCommittedStoreReadsStagedWrites(t *testing.T) {
	store := newCommitted(t)

	// Staged-but-uncommitted writes are part of the merged view, exactly
	// as the replay store reports them.
	require.NoError(t, store.Stage(types.StorageKey("k"), types.StorageValue("v")))

	value, found, err := store.Get(types.StorageKey("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.StorageValue("v"), value)

	require.NoError(t, store.StageDelete(types.StorageKey("k")))
	_, found, err = store.Get(types.StorageKey("k"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestCommittedStoreStagedDeleteMasksCommitted(t *testing.T) {
	store := newCommitted(t)

	require.NoError(t, store.Stage(types.StorageKey("k"), types.StorageValue("v")))
	_, err := store.Commit()
	require.NoError(t, err)

	require.NoError(t, store.StageDelete(types.StorageKey("k")))
	_, found, err := store.Get(types.StorageKey("k"))
	require.NoError(t, err)
	require.False(t, found)

	// Discarding the staged delete restores the committed view.
	require.NoError(t, store.Discard())
	value, found, err := store.Get(types.StorageKey("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.StorageValue("v"), value)
}

func TestCommittedStoreDelete(t *testing.T) {
	store := newCommitted(t)

	require.NoError(t, store.Stage(types.StorageKey("k"), types.StorageValue("v")))
	root1, err := store.Commit()
	require.NoError(t, err)

	require.NoError(t, store.StageDelete(types.StorageKey("k")))
	root2, err := store.Commit()
	require.NoError(t, err)
	require.NotEqual(t, root1, root2)

	_, found, err := store.Get(types.StorageKey("k"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestCommittedStoreDiscard(t *testing.T) {
	store := newCommitted(t)
	prev := store.Root()

	require.NoError(t, store.Stage(types.StorageKey("k"), types.StorageValue("v")))
	require.NoError(t, store.Discard())

	root, err := store.Commit()
	require.NoError(t, err)
	require.Equal(t, prev, root)

	_, found, err := store.Get(types.StorageKey("k"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestCommittedStoreLastWriteWins(t *testing.T) {
	store := newCommitted(t)

	require.NoError(t, store.Stage(types.StorageKey("k"), types.StorageValue("old")))
	require.NoError(t, store.Stage(types.StorageKey("k"), types.StorageValue("new")))

	_, err := store.Commit()
	require.NoError(t, err)

	value, found, err := store.Get(types.StorageKey("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.StorageValue("new"), value)
}

func TestCommittedStoreRootSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")

	engine1, err := statestore.NewIAVLStore(path, 100)
	require.NoError(t, err)

	store1, err := NewCommittedStore(engine1)
	require.NoError(t, err)

	require.NoError(t, store1.Stage(types.StorageKey("k"), types.StorageValue("v")))
	root, err := store1.Commit()
	require.NoError(t, err)
	require.NoError(t, engine1.Close())

	engine2, err := statestore.NewIAVLStore(path, 100)
	require.NoError(t, err)
	defer engine2.Close()

	store2, err := NewCommittedStore(engine2)
	require.NoError(t, err)
	require.Equal(t, root, store2.Root())
}

func TestCommittedStoreMetadataIsolated(t *testing.T) {
	store := newCommitted(t)

	// The reserved metadata key never collides with module key-space:
	// module ids start at 1, the metadata prefix is module id 0.
	require.NoError(t, store.Stage(types.StorageKey("\x00\x00\x00\x01\x00\x00\x00\x01"), types.StorageValue("v")))
	_, err := store.Commit()
	require.NoError(t, err)

	_, found, err := store.Get(types.StorageKey(metaRootKey))
	require.NoError(t, err)
	require.True(t, found) // metadata exists, but under its own prefix
}
