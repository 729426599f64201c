package types

import (
	"errors"
	"fmt"
)

// WrapOperationError wraps an error with operation context (module name and
// method).
func WrapOperationError(err error, module string, method string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s/%s: %w", module, method, err)
}

// WrapValidationError wraps a validation error with field context.
func WrapValidationError(err error, field string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("invalid %s: %w", field, err)
}

// Schema and key-derivation errors.
var (
	// ErrKeyCollision is returned when two registered fields derive the
	// same storage key. Detected at configuration time and fatal to startup.
	ErrKeyCollision = errors.New("storage key collision")

	// ErrModuleNotFound is returned when a module id or name is not registered.
	ErrModuleNotFound = errors.New("module not registered")

	// ErrFieldNotFound is returned when a field id or name is not registered
	// within its module.
	ErrFieldNotFound = errors.New("field not registered")

	// ErrDuplicateModule is returned when registering a module whose id or
	// name is already taken.
	ErrDuplicateModule = errors.New("duplicate module registration")

	// ErrDuplicateField is returned when registering a field whose id or
	// name is already taken within the module.
	ErrDuplicateField = errors.New("duplicate field registration")
)

// Witness errors. Both are fatal to the current slot: a verification run
// that trips either cannot be trusted and its slot is discarded.
var (
	// ErrWitnessMismatch is returned when a verification-mode read does not
	// match the next recorded witness entry.
	ErrWitnessMismatch = errors.New("witness mismatch")

	// ErrWitnessExhausted is returned when a verification-mode read finds
	// no unconsumed witness entries left.
	ErrWitnessExhausted = errors.New("witness exhausted")

	// ErrWitnessNotFound is returned when a witness cannot be found in the
	// witness archive.
	ErrWitnessNotFound = errors.New("witness not found")

	// ErrWitnessExists is returned when attempting to archive a witness for
	// a slot that already has one.
	ErrWitnessExists = errors.New("witness already exists")

	// ErrWitnessCorrupt is returned when witness bytes fail to decode.
	ErrWitnessCorrupt = errors.New("witness corrupt")
)

// State and store errors.
var (
	// ErrStoreClosed is returned when operations are attempted on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrKeyNotFound is returned when a key cannot be found in the state store.
	ErrKeyNotFound = errors.New("key not found")

	// ErrBackendIO is returned when the durable store cannot read or write
	// its medium. Fatal to the slot; no partial commit is allowed.
	ErrBackendIO = errors.New("storage backend failure")

	// ErrInvalidProof is returned when a merkle proof is invalid.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrInvalidValue is returned when a stored value fails to decode.
	// Contained to the offending operation, never fatal to the slot.
	ErrInvalidValue = errors.New("invalid value encoding")

	// ErrNoCheckpoint is returned when reverting or releasing a checkpoint
	// that does not exist.
	ErrNoCheckpoint = errors.New("no such checkpoint")
)

// Runner lifecycle errors.
var (
	// ErrSlotNotOpen is returned when batch operations are attempted
	// outside an open slot.
	ErrSlotNotOpen = errors.New("slot not open")

	// ErrSlotAlreadyOpen is returned when beginning a slot while another
	// is still open.
	ErrSlotAlreadyOpen = errors.New("slot already open")

	// ErrSlotAborted is returned by lifecycle calls after a slot was
	// discarded without producing a root, until the next slot opens.
	ErrSlotAborted = errors.New("slot aborted")

	// ErrRootMismatch is returned when a slot is opened against a previous
	// root that does not match the store's committed root.
	ErrRootMismatch = errors.New("previous root mismatch")

	// ErrWrongMode is returned when a lifecycle call is not valid for the
	// runner's execution mode.
	ErrWrongMode = errors.New("operation not valid in this execution mode")
)

// Module layer errors.
var (
	// ErrUnknownMethod is returned when an operation names a method the
	// target module does not implement.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrInsufficientFunds is returned by the bank module when a debit
	// exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
