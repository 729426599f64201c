package witness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/rollberry/types"
)

func TestRecordAndCursor(t *testing.T) {
	w := New()
	w.Record(types.StorageKey("k1"), types.StorageValue("v1"), true)
	w.Record(types.StorageKey("k2"), nil, false)
	w.Record(types.StorageKey("k3"), types.StorageValue("v3"), true)
	require.Equal(t, 3, w.Len())

	cur := w.Cursor()
	require.Equal(t, 3, cur.Remaining())

	value, present, err := cur.Next(types.StorageKey("k1"))
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, types.StorageValue("v1"), value)

	value, present, err = cur.Next(types.StorageKey("k2"))
	require.NoError(t, err)
	require.False(t, present)
	require.Nil(t, value)

	_, _, err = cur.Next(types.StorageKey("k3"))
	require.NoError(t, err)
	require.Equal(t, 0, cur.Remaining())
}

func TestCursorMismatch(t *testing.T) {
	w := New()
	w.Record(types.StorageKey("k1"), types.StorageValue("v1"), true)

	t.Run("wrong key", func(t *testing.T) {
		cur := w.Cursor()
		_, _, err := cur.Next(types.StorageKey("other"))
		require.ErrorIs(t, err, types.ErrWitnessMismatch)
	})

	t.Run("exhausted", func(t *testing.T) {
		cur := w.Cursor()
		_, _, err := cur.Next(types.StorageKey("k1"))
		require.NoError(t, err)

		_, _, err = cur.Next(types.StorageKey("k1"))
		require.ErrorIs(t, err, types.ErrWitnessExhausted)
	})
}

func TestRecordIsDefensive(t *testing.T) {
	key := types.StorageKey("key")
	value := types.StorageValue("value")

	w := New()
	w.Record(key, value, true)

	key[0] = 'X'
	value[0] = 'X'

	entry := w.Entries()[0]
	require.Equal(t, types.StorageKey("key"), entry.Key)
	require.Equal(t, types.StorageValue("value"), entry.Value)
}

func TestEmptyWitness(t *testing.T) {
	w := New()
	require.Equal(t, 0, w.Len())

	cur := w.Cursor()
	_, _, err := cur.Next(types.StorageKey("any"))
	require.ErrorIs(t, err, types.ErrWitnessExhausted)
}
