// Package runner drives the slot lifecycle: it opens a slot over a
// storage backend, applies batches of operations through registered
// modules, and closes the slot to produce the next commitment root.
//
// A runner executes in one of two modes. Native mode runs against
// durable committed state and records a witness of every backend read,
// so that the slot can later be re-executed without the full key space.
// Verify mode runs the same operations against a previously recorded
// witness and produces a root to compare against the native one.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blockberries/rollberry/logging"
	"github.com/blockberries/rollberry/metrics"
	"github.com/blockberries/rollberry/modules"
	"github.com/blockberries/rollberry/state"
	"github.com/blockberries/rollberry/types"
	"github.com/blockberries/rollberry/witness"
)

// OpResult reports the outcome of one operation in a batch.
type OpResult struct {
	// Index is the operation's position within the batch.
	Index int

	// Module and Method identify the invoked entry point.
	Module string
	Method string

	// Err is nil when the operation applied, and the module's error when
	// it failed and was rolled back.
	Err error
}

// BatchResult reports the outcome of one ApplyBatch call.
type BatchResult struct {
	Results []OpResult
	Applied int
	Failed  int
}

// Runner executes batches of operations within slot boundaries.
// It is not safe for concurrent use.
type Runner struct {
	mode    string
	modules map[string]modules.Module
	logger  *logging.Logger
	metrics metrics.Metrics

	committed *state.CommittedStore

	// aborted is set when the last slot was discarded without producing
	// a root; cleared when the next slot opens.
	aborted bool

	// Per-slot execution state, valid only while open.
	open     bool
	slot     types.Slot
	ws       *state.WorkingSet
	replay   *state.ReplayStore
	openedAt time.Time
}

// NewNative creates a runner that executes against durable committed
// state and records witnesses.
func NewNative(store *state.CommittedStore, mods []modules.Module, logger *logging.Logger, m metrics.Metrics) (*Runner, error) {
	r, err := newRunner(metrics.ModeNative, mods, logger, m)
	if err != nil {
		return nil, err
	}
	r.committed = store
	return r, nil
}

// NewVerifier creates a runner that re-executes slots against recorded
// witnesses. It holds no durable state.
func NewVerifier(mods []modules.Module, logger *logging.Logger, m metrics.Metrics) (*Runner, error) {
	return newRunner(metrics.ModeVerify, mods, logger, m)
}

func newRunner(mode string, mods []modules.Module, logger *logging.Logger, m metrics.Metrics) (*Runner, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}

	byName := make(map[string]modules.Module, len(mods))
	for _, mod := range mods {
		name := mod.Descriptor().Name
		if _, ok := byName[name]; ok {
			return nil, fmt.Errorf("%s: %w", name, types.ErrDuplicateModule)
		}
		byName[name] = mod
	}

	return &Runner{
		mode:    mode,
		modules: byName,
		logger:  logger.WithComponent("runner").With(logging.Mode(mode)),
		metrics: m,
	}, nil
}

// Mode returns the runner's execution mode.
func (r *Runner) Mode() string {
	return r.mode
}

// Slot returns the currently open slot. Only meaningful while a slot is
// open.
func (r *Runner) Slot() types.Slot {
	return r.slot
}

// BeginSlot opens a slot in native mode. prevRoot must match the
// committed store's current root.
func (r *Runner) BeginSlot(slot types.Slot, prevRoot types.Root) error {
	if r.mode != metrics.ModeNative {
		return fmt.Errorf("begin slot: %w", types.ErrWrongMode)
	}
	if r.open {
		return fmt.Errorf("slot %d: %w", r.slot, types.ErrSlotAlreadyOpen)
	}
	if current := r.committed.Root(); !prevRoot.Equal(current) {
		return fmt.Errorf("have %s, got %s: %w", current, prevRoot, types.ErrRootMismatch)
	}

	r.openSlot(slot)
	r.ws = state.NewWorkingSet(r.committed, witness.New())
	return nil
}

// BeginVerifySlot opens a slot in verify mode against a recorded
// witness. prevRoot is the root the native run started from.
func (r *Runner) BeginVerifySlot(slot types.Slot, prevRoot types.Root, w *witness.Witness) error {
	if r.mode != metrics.ModeVerify {
		return fmt.Errorf("begin verify slot: %w", types.ErrWrongMode)
	}
	if r.open {
		return fmt.Errorf("slot %d: %w", r.slot, types.ErrSlotAlreadyOpen)
	}

	r.openSlot(slot)
	r.replay = state.NewReplayStore(prevRoot, w)
	r.ws = state.NewWorkingSet(r.replay, nil)
	return nil
}

func (r *Runner) openSlot(slot types.Slot) {
	r.open = true
	r.aborted = false
	r.slot = slot
	r.openedAt = time.Now()
	r.logger.Debug("slot opened", logging.Slot(slot))
}

// ApplyBatch applies operations in order against the open slot.
//
// A failed operation is rolled back as a unit and execution continues;
// its error is reported in the BatchResult. A fatal error (witness
// mismatch or exhaustion, backend failure) aborts the whole slot: all
// buffered writes are discarded, the runner goes idle, and the error is
// returned alongside the partial BatchResult. Until the next slot opens,
// lifecycle calls report types.ErrSlotAborted.
func (r *Runner) ApplyBatch(ctx context.Context, ops []modules.Operation) (*BatchResult, error) {
	if !r.open {
		return nil, r.notOpenErr()
	}

	r.metrics.ObserveBatchSize(len(ops))
	result := &BatchResult{Results: make([]OpResult, 0, len(ops))}

	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			r.abort(metrics.AbortReasonCaller)
			return result, err
		}

		opErr := r.applyOne(ctx, op)
		if opErr != nil && isFatal(opErr) {
			if errors.Is(opErr, types.ErrWitnessMismatch) || errors.Is(opErr, types.ErrWitnessExhausted) {
				r.metrics.IncWitnessMismatches()
				r.abort(metrics.AbortReasonWitness)
			} else {
				r.abort(metrics.AbortReasonBackend)
			}
			r.logger.Error("slot aborted",
				logging.Slot(r.slot),
				logging.Module(op.Module),
				logging.Method(op.Method),
				logging.Error(opErr))
			return result, fmt.Errorf("operation %d: %w", i, opErr)
		}

		result.Results = append(result.Results, OpResult{
			Index:  i,
			Module: op.Module,
			Method: op.Method,
			Err:    opErr,
		})
		if opErr != nil {
			result.Failed++
			r.metrics.IncOpsFailed(op.Module, op.Method, failReason(opErr))
			r.logger.Debug("operation failed",
				logging.Slot(r.slot),
				logging.Index(i),
				logging.Error(opErr))
		} else {
			result.Applied++
			r.metrics.IncOpsApplied(op.Module, op.Method)
		}
	}

	return result, nil
}

// applyOne runs a single operation inside a checkpoint. On failure the
// operation's writes are reverted and the module error is returned.
func (r *Runner) applyOne(ctx context.Context, op modules.Operation) error {
	mod, ok := r.modules[op.Module]
	if !ok {
		return types.WrapOperationError(types.ErrModuleNotFound, op.Module, op.Method)
	}

	cp := r.ws.Checkpoint()
	err := mod.Call(ctx, r.ws, op)
	if err == nil {
		return nil
	}
	if isFatal(err) {
		// The slot is going down; no point unwinding the buffer.
		return types.WrapOperationError(err, op.Module, op.Method)
	}
	if revertErr := r.ws.Revert(cp); revertErr != nil {
		return revertErr
	}
	return types.WrapOperationError(err, op.Module, op.Method)
}

// EndSlot commits the open slot and returns the new root. In native
// mode the recorded witness is returned alongside; in verify mode the
// witness return is nil and any unconsumed witness entries fail the
// slot with types.ErrWitnessMismatch.
func (r *Runner) EndSlot() (types.Root, *witness.Witness, error) {
	if !r.open {
		return nil, nil, r.notOpenErr()
	}

	if r.mode == metrics.ModeVerify && r.replay.RemainingWitness() > 0 {
		remaining := r.replay.RemainingWitness()
		r.metrics.IncWitnessMismatches()
		r.abort(metrics.AbortReasonWitness)
		return nil, nil, fmt.Errorf("%d unconsumed witness entries: %w", remaining, types.ErrWitnessMismatch)
	}

	rec := r.ws.Witness()

	start := time.Now()
	root, err := r.ws.Flush()
	if err != nil {
		r.abort(metrics.AbortReasonBackend)
		return nil, nil, err
	}
	r.metrics.ObserveCommitLatency(time.Since(start))

	if rec != nil {
		r.metrics.SetWitnessEntries(rec.Len())
		r.metrics.SetWitnessBytes(len(witness.Encode(rec)))
	}
	r.metrics.SetSlot(r.slot.Int64())
	r.metrics.IncSlotsCommitted(r.mode)
	r.metrics.ObserveSlotDuration(r.mode, time.Since(r.openedAt))

	r.logger.Info("slot committed",
		logging.Slot(r.slot),
		logging.Root(root),
		logging.Duration(time.Since(r.openedAt)))

	r.reset()
	return root, rec, nil
}

// Abort discards the open slot without committing.
func (r *Runner) Abort() error {
	if !r.open {
		return r.notOpenErr()
	}
	r.abort(metrics.AbortReasonCaller)
	return nil
}

// notOpenErr distinguishes a runner that never opened a slot from one
// whose last slot was discarded.
func (r *Runner) notOpenErr() error {
	if r.aborted {
		return types.ErrSlotAborted
	}
	return types.ErrSlotNotOpen
}

func (r *Runner) abort(reason string) {
	if r.mode == metrics.ModeNative {
		if err := r.committed.Discard(); err != nil {
			r.logger.Error("discard failed", logging.Error(err))
		}
	}
	r.metrics.IncSlotsAborted(reason)
	r.logger.Info("slot discarded", logging.Slot(r.slot), logging.Reason(reason))
	r.reset()
	r.aborted = true
}

func (r *Runner) reset() {
	r.open = false
	r.ws = nil
	r.replay = nil
}

// isFatal reports whether an operation error must abort the slot rather
// than just the operation.
func isFatal(err error) bool {
	return errors.Is(err, types.ErrWitnessMismatch) ||
		errors.Is(err, types.ErrWitnessExhausted) ||
		errors.Is(err, types.ErrBackendIO)
}

// failReason maps an operation error to a bounded metrics label.
func failReason(err error) string {
	switch {
	case errors.Is(err, types.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, types.ErrUnknownMethod):
		return "unknown_method"
	case errors.Is(err, types.ErrModuleNotFound):
		return "module_not_found"
	case errors.Is(err, types.ErrInvalidValue):
		return "invalid_value"
	default:
		return "error"
	}
}
