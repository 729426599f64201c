// Package bank implements a minimal balance-tracking module.
//
// It is the reference module of the framework: per-address balances under
// a map field, a singleton total-supply field, and entry points that
// exercise failure containment (a debit past the available balance rolls
// back without touching the slot).
package bank

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/blockberries/rollberry/modules"
	"github.com/blockberries/rollberry/schema"
	"github.com/blockberries/rollberry/state"
	"github.com/blockberries/rollberry/types"
)

// Field names the module expects in its schema declaration.
const (
	FieldBalances = "balances"
	FieldSupply   = "supply"
)

// Methods.
const (
	MethodCredit   = "credit"
	MethodDebit    = "debit"
	MethodTransfer = "transfer"
)

// Bank is a balance-tracking module.
type Bank struct {
	registry   *schema.Registry
	desc       *schema.ModuleDescriptor
	balancesID uint32
	supplyID   uint32
}

// New creates a bank module bound to its registered descriptor.
// The module's schema declaration must include the balances and supply
// fields.
func New(registry *schema.Registry, moduleName string) (*Bank, error) {
	desc, err := registry.ModuleByName(moduleName)
	if err != nil {
		return nil, err
	}
	balances, err := desc.FieldByName(FieldBalances)
	if err != nil {
		return nil, err
	}
	supply, err := desc.FieldByName(FieldSupply)
	if err != nil {
		return nil, err
	}

	return &Bank{
		registry:   registry,
		desc:       desc,
		balancesID: balances.ID,
		supplyID:   supply.ID,
	}, nil
}

// Descriptor returns the module's schema descriptor.
func (b *Bank) Descriptor() *schema.ModuleDescriptor {
	return b.desc
}

// Call dispatches a bank entry point.
func (b *Bank) Call(ctx context.Context, ws *state.WorkingSet, op modules.Operation) error {
	switch op.Method {
	case MethodCredit:
		addr, amount, err := decodeArgs(op.Args)
		if err != nil {
			return err
		}
		return b.Credit(ws, addr, amount)
	case MethodDebit:
		addr, amount, err := decodeArgs(op.Args)
		if err != nil {
			return err
		}
		return b.Debit(ws, addr, amount)
	case MethodTransfer:
		to, amount, err := decodeArgs(op.Args)
		if err != nil {
			return err
		}
		return b.Transfer(ws, op.Sender, to, amount)
	default:
		return fmt.Errorf("%s: %w", op.Method, types.ErrUnknownMethod)
	}
}

// Credit adds amount to an address balance and grows the total supply.
func (b *Bank) Credit(ws *state.WorkingSet, addr []byte, amount uint64) error {
	balance, err := b.Balance(ws, addr)
	if err != nil {
		return err
	}
	if err := b.setBalance(ws, addr, balance+amount); err != nil {
		return err
	}

	supply, err := b.Supply(ws)
	if err != nil {
		return err
	}
	return b.setSupply(ws, supply+amount)
}

// Debit removes amount from an address balance and shrinks the total
// supply. Fails with types.ErrInsufficientFunds when the balance is too
// small; partial writes are rolled back by the runner.
func (b *Bank) Debit(ws *state.WorkingSet, addr []byte, amount uint64) error {
	supply, err := b.Supply(ws)
	if err != nil {
		return err
	}
	// Saturates on over-debit; the balance check below fails in that
	// case and the runner rolls this write back.
	newSupply := supply - amount
	if amount > supply {
		newSupply = 0
	}
	if err := b.setSupply(ws, newSupply); err != nil {
		return err
	}

	balance, err := b.Balance(ws, addr)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("balance %d, debit %d: %w", balance, amount, types.ErrInsufficientFunds)
	}
	return b.setBalance(ws, addr, balance-amount)
}

// Transfer moves amount from one address to another. Supply is untouched.
func (b *Bank) Transfer(ws *state.WorkingSet, from, to []byte, amount uint64) error {
	fromBalance, err := b.Balance(ws, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("balance %d, transfer %d: %w", fromBalance, amount, types.ErrInsufficientFunds)
	}
	toBalance, err := b.Balance(ws, to)
	if err != nil {
		return err
	}

	if err := b.setBalance(ws, from, fromBalance-amount); err != nil {
		return err
	}
	return b.setBalance(ws, to, toBalance+amount)
}

// Balance reads an address balance; absent means zero.
func (b *Bank) Balance(ws *state.WorkingSet, addr []byte) (uint64, error) {
	key, err := b.registry.DeriveKey(b.desc.ID, b.balancesID, addr)
	if err != nil {
		return 0, err
	}
	return readAmount(ws, key)
}

// Supply reads the total supply; absent means zero.
func (b *Bank) Supply(ws *state.WorkingSet) (uint64, error) {
	key, err := b.registry.DeriveKey(b.desc.ID, b.supplyID, nil)
	if err != nil {
		return 0, err
	}
	return readAmount(ws, key)
}

func (b *Bank) setBalance(ws *state.WorkingSet, addr []byte, amount uint64) error {
	key, err := b.registry.DeriveKey(b.desc.ID, b.balancesID, addr)
	if err != nil {
		return err
	}
	ws.Write(key, encodeAmount(amount))
	return nil
}

func (b *Bank) setSupply(ws *state.WorkingSet, amount uint64) error {
	key, err := b.registry.DeriveKey(b.desc.ID, b.supplyID, nil)
	if err != nil {
		return err
	}
	ws.Write(key, encodeAmount(amount))
	return nil
}

func readAmount(ws *state.WorkingSet, key types.StorageKey) (uint64, error) {
	value, found, err := ws.Read(key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return decodeAmount(value)
}

// Amounts are stored as fixed-width big-endian uint64.

func encodeAmount(amount uint64) types.StorageValue {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, amount)
	return buf
}

func decodeAmount(value types.StorageValue) (uint64, error) {
	if len(value) != 8 {
		return 0, fmt.Errorf("amount must be 8 bytes, got %d: %w", len(value), types.ErrInvalidValue)
	}
	return binary.BigEndian.Uint64(value), nil
}

// Args are u8 addrLen || addr || u64 amount, big-endian.

// EncodeArgs builds the argument encoding for credit, debit and
// transfer operations.
func EncodeArgs(addr []byte, amount uint64) []byte {
	buf := make([]byte, 0, 1+len(addr)+8)
	buf = append(buf, byte(len(addr)))
	buf = append(buf, addr...)
	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], amount)
	return append(buf, scratch[:]...)
}

func decodeArgs(args []byte) ([]byte, uint64, error) {
	if len(args) < 1 {
		return nil, 0, fmt.Errorf("empty args: %w", types.ErrInvalidValue)
	}
	addrLen := int(args[0])
	if len(args) != 1+addrLen+8 {
		return nil, 0, fmt.Errorf("args length %d: %w", len(args), types.ErrInvalidValue)
	}
	addr := args[1 : 1+addrLen]
	amount := binary.BigEndian.Uint64(args[1+addrLen:])
	return addr, amount, nil
}
