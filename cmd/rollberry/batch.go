package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/blockberries/rollberry/modules"
	"github.com/blockberries/rollberry/modules/bank"
)

// batchOp is the JSON form of one operation in a batch file.
//
// Args carries the module's raw argument encoding in hex. For bank
// operations the address/amount pair may be given instead and is
// encoded automatically.
type batchOp struct {
	Module  string `json:"module"`
	Method  string `json:"method"`
	Sender  string `json:"sender,omitempty"`
	Args    string `json:"args,omitempty"`
	Address string `json:"address,omitempty"`
	Amount  uint64 `json:"amount,omitempty"`
}

// loadBatch reads a batch of operations from a JSON file.
func loadBatch(path string) ([]modules.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	var raw []batchOp
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}

	ops := make([]modules.Operation, 0, len(raw))
	for i, op := range raw {
		decoded, err := op.toOperation()
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, decoded)
	}
	return ops, nil
}

func (op batchOp) toOperation() (modules.Operation, error) {
	out := modules.Operation{
		Module: op.Module,
		Method: op.Method,
		Sender: []byte(op.Sender),
	}
	if op.Sender == "" {
		out.Sender = nil
	}

	switch {
	case op.Args != "":
		args, err := hex.DecodeString(op.Args)
		if err != nil {
			return modules.Operation{}, fmt.Errorf("decoding args hex: %w", err)
		}
		out.Args = args
	case op.Address != "":
		out.Args = bank.EncodeArgs([]byte(op.Address), op.Amount)
	}
	return out, nil
}
