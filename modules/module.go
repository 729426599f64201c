// Package modules defines the contract between the state-transition
// runner and business-logic modules.
//
// Modules are registered at startup alongside their schema descriptors
// and invoked strictly in sequence during a batch. Each call receives an
// exclusive reference to the slot's working set; all persistent state
// goes through it. Module-to-module calls are ordinary Go calls made
// while holding that reference.
package modules

import (
	"context"

	"github.com/blockberries/rollberry/schema"
	"github.com/blockberries/rollberry/state"
)

// Operation is one state-transition operation of a batch.
type Operation struct {
	// Module is the target module's registered name.
	Module string

	// Method is the module entry point to invoke.
	Method string

	// Sender identifies the calling principal. The core does not
	// interpret it; signature checking happens before batch assembly.
	Sender []byte

	// Args is the method's opaque argument encoding, defined per module.
	Args []byte
}

// Module is a business-logic module callable during a batch.
//
// Call returns nil on success. A non-nil error is an operation failure:
// the runner rolls back the operation's writes and continues with the
// next operation, unless the error is fatal to the slot (witness
// mismatch, backend failure).
type Module interface {
	// Descriptor returns the module's schema descriptor.
	Descriptor() *schema.ModuleDescriptor

	// Call invokes a module entry point against the working set.
	Call(ctx context.Context, ws *state.WorkingSet, op Operation) error
}
