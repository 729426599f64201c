package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockberries/rollberry/config"
	"github.com/blockberries/rollberry/node"
	"github.com/blockberries/rollberry/types"
)

var (
	verifySlot      int64
	verifyPrevRoot  string
	verifyExpect    string
	verifyBatchFile string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-execute an archived slot and check its root",
	Long: `Re-execute a slot's operations against its archived witness and
compare the produced root with the expected one.

The replay runs without touching committed state: every read is
answered from the witness.

Example:
  rollberry verify --slot 5 --prev-root <hex> --expect-root <hex> --batch batch.json`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Int64Var(&verifySlot, "slot", 0, "slot to verify (required)")
	verifyCmd.Flags().StringVar(&verifyPrevRoot, "prev-root", "", "root the slot started from, hex (empty for genesis)")
	verifyCmd.Flags().StringVar(&verifyExpect, "expect-root", "", "root the native run produced, hex (required)")
	verifyCmd.Flags().StringVar(&verifyBatchFile, "batch", "", "path to the JSON batch file (required)")
	verifyCmd.MarkFlagRequired("slot")
	verifyCmd.MarkFlagRequired("expect-root")
	verifyCmd.MarkFlagRequired("batch")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ops, err := loadBatch(verifyBatchFile)
	if err != nil {
		return err
	}

	prevRoot, err := parseRoot(verifyPrevRoot)
	if err != nil {
		return fmt.Errorf("parsing prev-root: %w", err)
	}
	expectRoot, err := parseRoot(verifyExpect)
	if err != nil {
		return fmt.Errorf("parsing expect-root: %w", err)
	}

	n, err := node.NewNode(cfg)
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}
	defer n.Stop()

	root, err := n.VerifySlot(context.Background(), types.Slot(verifySlot), prevRoot, ops)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	fmt.Printf("Verified slot %d\n", verifySlot)
	fmt.Printf("  Computed root: %s\n", root)
	fmt.Printf("  Expected root: %s\n", expectRoot)
	if !root.Equal(expectRoot) {
		return fmt.Errorf("root mismatch: computed %s, expected %s", root, expectRoot)
	}
	fmt.Println("  Roots match")
	return nil
}

// parseRoot decodes a hex root; the empty string means the genesis root.
func parseRoot(s string) (types.Root, error) {
	if s == "" {
		return types.GenesisRoot(), nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != types.HashSize {
		return nil, fmt.Errorf("root must be %d bytes, got %d", types.HashSize, len(raw))
	}
	return types.Root(raw), nil
}
