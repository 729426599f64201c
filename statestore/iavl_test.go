package statestore

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *IAVLStore {
	t.Helper()
	store, err := NewMemoryIAVLStore(100)
	require.NoError(t, err)
	return store
}

func TestNewIAVLStore(t *testing.T) {
	t.Run("creates new store", func(t *testing.T) {
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "state")

		store, err := NewIAVLStore(path, 100)
		require.NoError(t, err)
		require.NotNil(t, store)
		defer store.Close()

		require.Equal(t, int64(0), store.Version())
	})

	t.Run("reopens existing store", func(t *testing.T) {
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "state")

		store1, err := NewIAVLStore(path, 100)
		require.NoError(t, err)

		require.NoError(t, store1.Set([]byte("key"), []byte("value")))

		_, version, err := store1.Commit()
		require.NoError(t, err)
		require.Equal(t, int64(1), version)
		require.NoError(t, store1.Close())

		store2, err := NewIAVLStore(path, 100)
		require.NoError(t, err)
		defer store2.Close()

		require.Equal(t, int64(1), store2.Version())

		value, err := store2.Get([]byte("key"))
		require.NoError(t, err)
		require.Equal(t, []byte("value"), value)
	})
}

func TestSetAndGet(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	t.Run("sets and gets value", func(t *testing.T) {
		require.NoError(t, store.Set([]byte("key1"), []byte("value1")))

		value, err := store.Get([]byte("key1"))
		require.NoError(t, err)
		require.Equal(t, []byte("value1"), value)
	})

	t.Run("returns nil for non-existent key", func(t *testing.T) {
		value, err := store.Get([]byte("nonexistent"))
		require.NoError(t, err)
		require.Nil(t, value)
	})

	t.Run("rejects nil key and value", func(t *testing.T) {
		require.Error(t, store.Set(nil, []byte("v")))
		require.Error(t, store.Set([]byte("k"), nil))
	})
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	require.NoError(t, store.Set([]byte("key"), []byte("value")))
	require.NoError(t, store.Delete([]byte("key")))

	has, err := store.Has([]byte("key"))
	require.NoError(t, err)
	require.False(t, has)
}

func TestCommitAndRollback(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	t.Run("commit advances version", func(t *testing.T) {
		require.NoError(t, store.Set([]byte("a"), []byte("1")))

		hash, version, err := store.Commit()
		require.NoError(t, err)
		require.NotEmpty(t, hash)
		require.Equal(t, int64(1), version)
	})

	t.Run("rollback discards uncommitted writes", func(t *testing.T) {
		require.NoError(t, store.Set([]byte("b"), []byte("2")))
		store.Rollback()

		has, err := store.Has([]byte("b"))
		require.NoError(t, err)
		require.False(t, has)

		// Committed state survives
		value, err := store.Get([]byte("a"))
		require.NoError(t, err)
		require.Equal(t, []byte("1"), value)
	})
}

func TestGetProof(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	require.NoError(t, store.Set([]byte("key"), []byte("value")))
	_, _, err := store.Commit()
	require.NoError(t, err)

	t.Run("membership proof", func(t *testing.T) {
		proof, err := store.GetProof([]byte("key"))
		require.NoError(t, err)
		require.True(t, proof.Exists)
		require.Equal(t, []byte("value"), proof.Value)
		require.NotEmpty(t, proof.ProofBytes)

		ok, err := proof.Verify(proof.TreeHash)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("non-membership proof", func(t *testing.T) {
		proof, err := store.GetProof([]byte("absent"))
		require.NoError(t, err)
		require.False(t, proof.Exists)
		require.Nil(t, proof.Value)

		ok, err := proof.Verify(proof.TreeHash)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("proof fails against wrong root", func(t *testing.T) {
		proof, err := store.GetProof([]byte("key"))
		require.NoError(t, err)

		wrong := make([]byte, 32)
		ok, err := proof.Verify(wrong)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("nil key rejected", func(t *testing.T) {
		_, err := store.GetProof(nil)
		require.Error(t, err)
	})
}

func TestConcurrentReads(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	for i := 0; i < 50; i++ {
		key := []byte(fmt.Sprintf("key%d", i))
		require.NoError(t, store.Set(key, []byte("value")))
	}
	_, _, err := store.Commit()
	require.NoError(t, err)

	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				key := []byte(fmt.Sprintf("key%d", i))
				value, err := store.Get(key)
				require.NoError(t, err)
				require.Equal(t, []byte("value"), value)
			}
		}()
	}
	for g := 0; g < 4; g++ {
		<-done
	}
}
