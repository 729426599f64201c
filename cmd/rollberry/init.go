package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blockberries/rollberry/config"
	"github.com/blockberries/rollberry/modules/bank"
)

var (
	initChainID  string
	initDataDir  string
	initBackend  string
	initOverride bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new rollup instance",
	Long: `Initialize a new rollberry instance with a configuration file.

This command creates:
  - config.toml: Rollup configuration with a bank module declared
  - data/: Data directory for state and witnesses

Example:
  rollberry init --chain-id myrollup`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initChainID, "chain-id", "rollberry-testnet-1", "chain ID for the rollup")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", ".", "directory for configuration and data")
	initCmd.Flags().StringVar(&initBackend, "witness-backend", config.WitnessBackendLevelDB, "witness archive backend (leveldb, badgerdb, memory)")
	initCmd.Flags().BoolVar(&initOverride, "force", false, "override existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := initDataDir
	if dataDir == "" {
		dataDir = "."
	}

	configPath := filepath.Join(dataDir, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !initOverride {
		return fmt.Errorf("config.toml already exists; use --force to override")
	}

	cfg := config.DefaultConfig()
	cfg.Rollup.ChainID = initChainID
	cfg.StateStore.Path = filepath.Join(dataDir, "data", "state")
	cfg.Witness.Backend = initBackend
	cfg.Witness.Path = filepath.Join(dataDir, "data", "witness")
	cfg.Modules = []config.ModuleConfig{
		{
			Name: "bank",
			ID:   1,
			Fields: []config.FieldConfig{
				{Name: bank.FieldBalances, ID: 1},
				{Name: bank.FieldSupply, ID: 2},
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return err
	}
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("Initialized rollberry instance\n")
	fmt.Printf("  Chain ID:    %s\n", initChainID)
	fmt.Printf("  Config:      %s\n", configPath)
	fmt.Printf("  Data dir:    %s\n", filepath.Join(dataDir, "data"))
	return nil
}
