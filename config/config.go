// Package config provides configuration loading and validation for rollberry.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/blockberries/rollberry/types"
)

// Config is the main configuration for a rollberry instance.
type Config struct {
	Rollup     RollupConfig     `toml:"rollup"`
	Modules    []ModuleConfig   `toml:"modules"`
	StateStore StateStoreConfig `toml:"statestore"`
	Witness    WitnessConfig    `toml:"witness"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Logging    LoggingConfig    `toml:"logging"`
}

// RollupConfig contains rollup identity configuration.
type RollupConfig struct {
	// ChainID is the unique identifier for the rollup instance.
	ChainID string `toml:"chain_id"`
}

// ModuleConfig declares a module and its state fields.
// The module set is fixed at startup; there is no dynamic registration
// during a slot.
type ModuleConfig struct {
	// Name is the module's unique name.
	Name string `toml:"name"`

	// ID is the module's unique numeric identifier.
	// Used as the first component of every derived storage key.
	ID uint32 `toml:"id"`

	// Fields enumerates the module's declared state fields.
	Fields []FieldConfig `toml:"fields"`
}

// FieldConfig declares one state field of a module.
type FieldConfig struct {
	// Name is the field's name, unique within the module.
	Name string `toml:"name"`

	// ID is the field's numeric identifier, unique within the module.
	ID uint32 `toml:"id"`
}

// StateStoreConfig contains committed state storage configuration.
type StateStoreConfig struct {
	// Path is the directory for state storage.
	Path string `toml:"path"`

	// CacheSize is the number of tree nodes to cache in memory.
	CacheSize int `toml:"cache_size"`
}

// WitnessConfig contains witness archive configuration.
type WitnessConfig struct {
	// Backend selects the archive engine: "leveldb", "badgerdb" or "memory".
	Backend string `toml:"backend"`

	// Path is the directory for witness storage.
	// Ignored for the memory backend.
	Path string `toml:"path"`

	// RetainSlots is the number of recent slots whose witnesses are kept.
	// 0 disables pruning.
	RetainSlots int64 `toml:"retain_slots"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled turns on Prometheus metrics collection.
	Enabled bool `toml:"enabled"`

	// Namespace is the Prometheus metrics namespace.
	Namespace string `toml:"namespace"`

	// ListenAddr is the address for the metrics HTTP endpoint.
	ListenAddr string `toml:"listen_addr"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, or error.
	Level string `toml:"level"`

	// Format is the output format: text or json.
	Format string `toml:"format"`
}

// Witness archive backend names.
const (
	WitnessBackendLevelDB  = "leveldb"
	WitnessBackendBadgerDB = "badgerdb"
	WitnessBackendMemory   = "memory"
)

// DefaultConfig returns a configuration with sensible defaults.
// The module list is empty; callers register modules before use.
func DefaultConfig() *Config {
	return &Config{
		Rollup: RollupConfig{
			ChainID: "rollberry-testnet-1",
		},
		StateStore: StateStoreConfig{
			Path:      "data/state",
			CacheSize: 10000,
		},
		Witness: WitnessConfig{
			Backend:     WitnessBackendLevelDB,
			Path:        "data/witness",
			RetainSlots: 0,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			Namespace:  "rollberry",
			ListenAddr: ":26661",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads and validates a configuration from a TOML file.
// Missing fields take their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the configuration to a TOML file.
func SaveConfig(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validation errors.
var (
	ErrEmptyChainID          = errors.New("chain_id cannot be empty")
	ErrNoModules             = errors.New("at least one module is required")
	ErrEmptyModuleName       = errors.New("module name cannot be empty")
	ErrReservedModuleID      = errors.New("module id 0 is reserved for internal metadata")
	ErrNoFields              = errors.New("module must declare at least one field")
	ErrEmptyFieldName        = errors.New("field name cannot be empty")
	ErrEmptyStateStorePath   = errors.New("statestore path cannot be empty")
	ErrInvalidStateCacheSize = errors.New("statestore cache_size must be non-negative")
	ErrInvalidWitnessBackend = errors.New("witness backend must be 'leveldb', 'badgerdb' or 'memory'")
	ErrEmptyWitnessPath      = errors.New("witness path cannot be empty for a durable backend")
	ErrInvalidRetainSlots    = errors.New("witness retain_slots must be non-negative")
	ErrEmptyMetricsNamespace = errors.New("metrics namespace cannot be empty when enabled")
	ErrEmptyMetricsAddr      = errors.New("metrics listen_addr cannot be empty when enabled")
	ErrInvalidLogLevel       = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat      = errors.New("log format must be 'text' or 'json'")
)

// Validate checks the configuration for errors.
// Duplicate module or field registrations are reported here; full key
// collision checking happens when the schema registry is built.
func (c *Config) Validate() error {
	if c.Rollup.ChainID == "" {
		return types.WrapValidationError(ErrEmptyChainID, "rollup")
	}
	if len(c.Modules) == 0 {
		return types.WrapValidationError(ErrNoModules, "modules")
	}

	moduleIDs := make(map[uint32]string, len(c.Modules))
	moduleNames := make(map[string]struct{}, len(c.Modules))
	for _, m := range c.Modules {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
		if prev, ok := moduleIDs[m.ID]; ok {
			return fmt.Errorf("module %q: id %d already used by %q", m.Name, m.ID, prev)
		}
		if _, ok := moduleNames[m.Name]; ok {
			return fmt.Errorf("module %q: name already registered", m.Name)
		}
		moduleIDs[m.ID] = m.Name
		moduleNames[m.Name] = struct{}{}
	}

	if err := c.StateStore.Validate(); err != nil {
		return types.WrapValidationError(err, "statestore")
	}
	if err := c.Witness.Validate(); err != nil {
		return types.WrapValidationError(err, "witness")
	}
	if err := c.Metrics.Validate(); err != nil {
		return types.WrapValidationError(err, "metrics")
	}
	if err := c.Logging.Validate(); err != nil {
		return types.WrapValidationError(err, "logging")
	}
	return nil
}

// Validate checks a module declaration for errors.
func (m *ModuleConfig) Validate() error {
	if m.Name == "" {
		return ErrEmptyModuleName
	}
	if m.ID == 0 {
		return ErrReservedModuleID
	}
	if len(m.Fields) == 0 {
		return ErrNoFields
	}

	fieldIDs := make(map[uint32]string, len(m.Fields))
	fieldNames := make(map[string]struct{}, len(m.Fields))
	for _, f := range m.Fields {
		if f.Name == "" {
			return ErrEmptyFieldName
		}
		if prev, ok := fieldIDs[f.ID]; ok {
			return fmt.Errorf("field %q: id %d already used by %q", f.Name, f.ID, prev)
		}
		if _, ok := fieldNames[f.Name]; ok {
			return fmt.Errorf("field %q: name already registered", f.Name)
		}
		fieldIDs[f.ID] = f.Name
		fieldNames[f.Name] = struct{}{}
	}
	return nil
}

// Validate checks the state store configuration for errors.
func (c *StateStoreConfig) Validate() error {
	if c.Path == "" {
		return ErrEmptyStateStorePath
	}
	if c.CacheSize < 0 {
		return ErrInvalidStateCacheSize
	}
	return nil
}

// Validate checks the witness archive configuration for errors.
func (c *WitnessConfig) Validate() error {
	switch c.Backend {
	case WitnessBackendLevelDB, WitnessBackendBadgerDB:
		if c.Path == "" {
			return ErrEmptyWitnessPath
		}
	case WitnessBackendMemory:
	default:
		return ErrInvalidWitnessBackend
	}
	if c.RetainSlots < 0 {
		return ErrInvalidRetainSlots
	}
	return nil
}

// Validate checks the metrics configuration for errors.
func (c *MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Namespace == "" {
		return ErrEmptyMetricsNamespace
	}
	if c.ListenAddr == "" {
		return ErrEmptyMetricsAddr
	}
	return nil
}

// Validate checks the logging configuration for errors.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch c.Format {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// EnsureDataDirs creates the data directories referenced by the config.
func (c *Config) EnsureDataDirs() error {
	dirs := []string{c.StateStore.Path}
	if c.Witness.Backend != WitnessBackendMemory {
		dirs = append(dirs, c.Witness.Path)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}
	return nil
}
