package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockberries/rollberry/config"
	"github.com/blockberries/rollberry/node"
)

var runBatchFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a batch of operations as the next slot",
	Long: `Execute a batch of operations as the next slot and archive its
witness.

The batch file is a JSON array of operations:
  [{"module": "bank", "method": "credit", "address": "alice", "amount": 10}]

Example:
  rollberry run --batch batch.json`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runBatchFile, "batch", "", "path to the JSON batch file (required)")
	runCmd.MarkFlagRequired("batch")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ops, err := loadBatch(runBatchFile)
	if err != nil {
		return err
	}

	n, err := node.NewNode(cfg)
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}
	defer n.Stop()

	prev := n.Root()
	slot, root, result, err := n.RunSlot(context.Background(), ops)
	if err != nil {
		return err
	}

	fmt.Printf("Committed slot %d\n", slot)
	fmt.Printf("  Previous root: %s\n", prev)
	fmt.Printf("  New root:      %s\n", root)
	fmt.Printf("  Applied:       %d\n", result.Applied)
	fmt.Printf("  Failed:        %d\n", result.Failed)
	for _, r := range result.Results {
		if r.Err != nil {
			fmt.Printf("    op %d (%s/%s): %v\n", r.Index, r.Module, r.Method, r.Err)
		}
	}
	return nil
}
