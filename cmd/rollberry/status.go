package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockberries/rollberry/config"
	"github.com/blockberries/rollberry/node"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the local instance status",
	Long: `Print the committed state of the local rollberry instance.

The command opens the data directory directly; it fails if another
process holds the stores open.

Example:
  rollberry status
  rollberry status --json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

// statusInfo is the printable instance status.
type statusInfo struct {
	ChainID  string `json:"chain_id"`
	LastSlot int64  `json:"last_slot"`
	Root     string `json:"root"`
	Modules  int    `json:"modules"`
	Version  string `json:"version"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	n, err := node.NewNode(cfg)
	if err != nil {
		return fmt.Errorf("opening node: %w", err)
	}
	defer n.Stop()

	info := statusInfo{
		ChainID:  n.ChainID(),
		LastSlot: n.LastSlot().Int64(),
		Root:     n.Root().String(),
		Modules:  len(cfg.Modules),
		Version:  Version,
	}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Println("Instance Status")
	fmt.Println("===============")
	fmt.Printf("Chain ID:     %s\n", info.ChainID)
	fmt.Printf("Last Slot:    %d\n", info.LastSlot)
	fmt.Printf("Root:         %s\n", info.Root)
	fmt.Printf("Modules:      %d\n", info.Modules)
	fmt.Printf("Version:      %s\n", info.Version)
	return nil
}
