package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testModules() []ModuleConfig {
	return []ModuleConfig{
		{
			Name: "bank",
			ID:   1,
			Fields: []FieldConfig{
				{Name: "balances", ID: 1},
				{Name: "supply", ID: 2},
			},
		},
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	require.Equal(t, "rollberry-testnet-1", cfg.Rollup.ChainID)
	require.Equal(t, "data/state", cfg.StateStore.Path)
	require.Equal(t, 10000, cfg.StateStore.CacheSize)
	require.Equal(t, WitnessBackendLevelDB, cfg.Witness.Backend)
	require.Equal(t, "data/witness", cfg.Witness.Path)
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Modules = testModules()
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("empty chain id", func(t *testing.T) {
		cfg := valid()
		cfg.Rollup.ChainID = ""
		require.ErrorIs(t, cfg.Validate(), ErrEmptyChainID)
	})

	t.Run("no modules", func(t *testing.T) {
		cfg := valid()
		cfg.Modules = nil
		require.ErrorIs(t, cfg.Validate(), ErrNoModules)
	})

	t.Run("duplicate module id", func(t *testing.T) {
		cfg := valid()
		cfg.Modules = append(cfg.Modules, ModuleConfig{
			Name:   "staking",
			ID:     1,
			Fields: []FieldConfig{{Name: "stakes", ID: 1}},
		})
		require.Error(t, cfg.Validate())
	})

	t.Run("duplicate module name", func(t *testing.T) {
		cfg := valid()
		cfg.Modules = append(cfg.Modules, ModuleConfig{
			Name:   "bank",
			ID:     2,
			Fields: []FieldConfig{{Name: "balances", ID: 1}},
		})
		require.Error(t, cfg.Validate())
	})

	t.Run("duplicate field id", func(t *testing.T) {
		cfg := valid()
		cfg.Modules[0].Fields = []FieldConfig{
			{Name: "a", ID: 1},
			{Name: "b", ID: 1},
		}
		require.Error(t, cfg.Validate())
	})

	t.Run("module without fields", func(t *testing.T) {
		cfg := valid()
		cfg.Modules[0].Fields = nil
		require.ErrorIs(t, cfg.Validate(), ErrNoFields)
	})

	t.Run("invalid witness backend", func(t *testing.T) {
		cfg := valid()
		cfg.Witness.Backend = "redis"
		require.ErrorIs(t, cfg.Validate(), ErrInvalidWitnessBackend)
	})

	t.Run("durable witness backend requires path", func(t *testing.T) {
		cfg := valid()
		cfg.Witness.Backend = WitnessBackendBadgerDB
		cfg.Witness.Path = ""
		require.ErrorIs(t, cfg.Validate(), ErrEmptyWitnessPath)
	})

	t.Run("memory witness backend allows empty path", func(t *testing.T) {
		cfg := valid()
		cfg.Witness.Backend = WitnessBackendMemory
		cfg.Witness.Path = ""
		require.NoError(t, cfg.Validate())
	})

	t.Run("metrics enabled requires namespace", func(t *testing.T) {
		cfg := valid()
		cfg.Metrics.Enabled = true
		cfg.Metrics.Namespace = ""
		require.ErrorIs(t, cfg.Validate(), ErrEmptyMetricsNamespace)
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "verbose"
		require.ErrorIs(t, cfg.Validate(), ErrInvalidLogLevel)
	})

	t.Run("section context in error", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Format = "xml"
		err := cfg.Validate()
		require.ErrorIs(t, err, ErrInvalidLogFormat)
		require.ErrorContains(t, err, "invalid logging")
	})
}

func TestSaveAndLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := DefaultConfig()
	cfg.Modules = testModules()
	cfg.Rollup.ChainID = "rollberry-save-test"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "rollberry-save-test", loaded.Rollup.ChainID)
	require.Equal(t, cfg.Modules, loaded.Modules)
	require.Equal(t, cfg.Witness, loaded.Witness)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestEnsureDataDirs(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Modules = testModules()
	cfg.StateStore.Path = filepath.Join(tmpDir, "state")
	cfg.Witness.Path = filepath.Join(tmpDir, "witness")

	require.NoError(t, cfg.EnsureDataDirs())
	require.DirExists(t, cfg.StateStore.Path)
	require.DirExists(t, cfg.Witness.Path)
}
