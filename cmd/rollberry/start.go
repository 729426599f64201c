package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blockberries/rollberry/config"
	"github.com/blockberries/rollberry/node"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the node",
	Long: `Start the rollberry node with the specified configuration.

The node serves metrics (when enabled) and holds the stores open until
interrupted (Ctrl+C) or terminated.

Example:
  rollberry start --config config.toml`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	n, err := node.NewNode(cfg)
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}

	if err := n.Start(); err != nil {
		n.Stop()
		return fmt.Errorf("starting node: %w", err)
	}

	fmt.Printf("Node started (chain %s, slot %d)\n", n.ChainID(), n.LastSlot())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	fmt.Printf("Received %s, shutting down\n", sig)

	if err := n.Stop(); err != nil {
		return fmt.Errorf("stopping node: %w", err)
	}
	return nil
}
