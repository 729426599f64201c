package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/rollberry/config"
	"github.com/blockberries/rollberry/types"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]config.ModuleConfig{
		{
			Name: "bank",
			ID:   1,
			Fields: []config.FieldConfig{
				{Name: "balances", ID: 1},
				{Name: "supply", ID: 2},
			},
		},
		{
			Name: "staking",
			ID:   2,
			Fields: []config.FieldConfig{
				{Name: "balances", ID: 1},
			},
		},
	})
	require.NoError(t, err)
	return r
}

func TestNewRegistry(t *testing.T) {
	t.Run("valid registration", func(t *testing.T) {
		r := testRegistry(t)
		require.Equal(t, 2, r.Modules())

		m, err := r.Module(1)
		require.NoError(t, err)
		require.Equal(t, "bank", m.Name)

		m, err = r.ModuleByName("staking")
		require.NoError(t, err)
		require.Equal(t, uint32(2), m.ID)
	})

	t.Run("duplicate module id", func(t *testing.T) {
		_, err := NewRegistry([]config.ModuleConfig{
			{Name: "a", ID: 1, Fields: []config.FieldConfig{{Name: "x", ID: 1}}},
			{Name: "b", ID: 1, Fields: []config.FieldConfig{{Name: "x", ID: 1}}},
		})
		require.ErrorIs(t, err, types.ErrDuplicateModule)
	})

	t.Run("duplicate module name", func(t *testing.T) {
		_, err := NewRegistry([]config.ModuleConfig{
			{Name: "a", ID: 1, Fields: []config.FieldConfig{{Name: "x", ID: 1}}},
			{Name: "a", ID: 2, Fields: []config.FieldConfig{{Name: "x", ID: 1}}},
		})
		require.ErrorIs(t, err, types.ErrDuplicateModule)
	})

	t.Run("duplicate field id within module", func(t *testing.T) {
		_, err := NewRegistry([]config.ModuleConfig{
			{Name: "a", ID: 1, Fields: []config.FieldConfig{
				{Name: "x", ID: 1},
				{Name: "y", ID: 1},
			}},
		})
		require.ErrorIs(t, err, types.ErrDuplicateField)
	})

	t.Run("duplicate field name within module", func(t *testing.T) {
		_, err := NewRegistry([]config.ModuleConfig{
			{Name: "a", ID: 1, Fields: []config.FieldConfig{
				{Name: "x", ID: 1},
				{Name: "x", ID: 2},
			}},
		})
		require.ErrorIs(t, err, types.ErrDuplicateField)
	})

	t.Run("same field ids in different modules are fine", func(t *testing.T) {
		r := testRegistry(t)
		a, err := r.DeriveKey(1, 1, nil)
		require.NoError(t, err)
		b, err := r.DeriveKey(2, 1, nil)
		require.NoError(t, err)
		require.False(t, a.Equal(b))
	})
}

func TestDeriveKey(t *testing.T) {
	r := testRegistry(t)

	t.Run("layout", func(t *testing.T) {
		key, err := r.DeriveKey(1, 2, []byte("addr"))
		require.NoError(t, err)
		require.Equal(t, types.StorageKey{
			0x00, 0x00, 0x00, 0x01, // module id
			0x00, 0x00, 0x00, 0x02, // field id
			'a', 'd', 'd', 'r',
		}, key)
	})

	t.Run("nil sub-key gives bare prefix", func(t *testing.T) {
		key, err := r.DeriveKey(1, 2, nil)
		require.NoError(t, err)
		require.Len(t, []byte(key), KeyPrefixSize)

		prefix, err := r.Prefix(1, 2)
		require.NoError(t, err)
		require.True(t, key.Equal(prefix))
	})

	t.Run("stable across calls", func(t *testing.T) {
		a, err := r.DeriveKey(2, 1, []byte("alice"))
		require.NoError(t, err)
		b, err := r.DeriveKey(2, 1, []byte("alice"))
		require.NoError(t, err)
		require.True(t, a.Equal(b))
	})

	t.Run("unregistered module", func(t *testing.T) {
		_, err := r.DeriveKey(99, 1, nil)
		require.ErrorIs(t, err, types.ErrModuleNotFound)
	})

	t.Run("unregistered field", func(t *testing.T) {
		_, err := r.DeriveKey(1, 99, nil)
		require.ErrorIs(t, err, types.ErrFieldNotFound)
	})
}

// TestDeriveKeyCollisionFreedom exhaustively checks pairwise distinctness
// over a registered domain, including sub-keys that could collide under a
// naive concatenation scheme.
func TestDeriveKeyCollisionFreedom(t *testing.T) {
	modules := make([]config.ModuleConfig, 0, 4)
	for m := uint32(1); m <= 4; m++ {
		mc := config.ModuleConfig{Name: string(rune('a' + m)), ID: m}
		for f := uint32(1); f <= 4; f++ {
			mc.Fields = append(mc.Fields, config.FieldConfig{
				Name: string(rune('w' + f)),
				ID:   f,
			})
		}
		modules = append(modules, mc)
	}
	r, err := NewRegistry(modules)
	require.NoError(t, err)

	subKeys := [][]byte{nil, []byte("a"), []byte("ab"), []byte("b"), {0x00}, {0x00, 0x00}}

	seen := make(map[string]string)
	for m := uint32(1); m <= 4; m++ {
		for f := uint32(1); f <= 4; f++ {
			for i, sub := range subKeys {
				key, err := r.DeriveKey(m, f, sub)
				require.NoError(t, err)

				desc := fmt.Sprintf("module=%d field=%d sub=%d", m, f, i)
				if prev, dup := seen[string(key)]; dup {
					t.Fatalf("collision between %s and %s", prev, desc)
				}
				seen[string(key)] = desc
			}
		}
	}
}

func TestModuleFieldLookup(t *testing.T) {
	r := testRegistry(t)

	m, err := r.Module(1)
	require.NoError(t, err)

	f, err := m.Field(2)
	require.NoError(t, err)
	require.Equal(t, "supply", f.Name)

	f, err = m.FieldByName("balances")
	require.NoError(t, err)
	require.Equal(t, uint32(1), f.ID)

	_, err = m.FieldByName("nope")
	require.ErrorIs(t, err, types.ErrFieldNotFound)
}
