package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashEqual(t *testing.T) {
	t.Run("equal hashes", func(t *testing.T) {
		a := HashBytes([]byte("data"))
		b := HashBytes([]byte("data"))
		require.True(t, a.Equal(b))
	})

	t.Run("different hashes", func(t *testing.T) {
		a := HashBytes([]byte("data"))
		b := HashBytes([]byte("other"))
		require.False(t, a.Equal(b))
	})

	t.Run("nil hash is empty", func(t *testing.T) {
		var h Hash
		require.True(t, h.IsEmpty())
		require.False(t, HashBytes([]byte("x")).IsEmpty())
	})
}

func TestHashConcat(t *testing.T) {
	left := HashBytes([]byte("left"))
	right := HashBytes([]byte("right"))

	combined := HashConcat(left, right)
	require.Len(t, combined, HashSize)

	// Order matters
	reversed := HashConcat(right, left)
	require.False(t, combined.Equal(reversed))
}

func TestGenesisRoot(t *testing.T) {
	require.Equal(t, EmptyHash(), GenesisRoot())
	require.Len(t, GenesisRoot(), HashSize)
}

func TestStorageValueClone(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		var v StorageValue
		require.Nil(t, v.Clone())
	})

	t.Run("clone is independent", func(t *testing.T) {
		v := StorageValue("abc")
		c := v.Clone()
		c[0] = 'z'
		require.Equal(t, StorageValue("abc"), v)
	})
}

func TestStorageKeyClone(t *testing.T) {
	k := StorageKey{0x01, 0x02}
	c := k.Clone()
	c[0] = 0xff
	require.Equal(t, StorageKey{0x01, 0x02}, k)
	require.True(t, k.Equal(StorageKey{0x01, 0x02}))
}
