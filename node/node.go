// Package node wires the rollberry components into a running instance:
// schema registry, durable state, witness archive, metrics, and the
// native slot runner.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/blockberries/rollberry/config"
	"github.com/blockberries/rollberry/logging"
	"github.com/blockberries/rollberry/metrics"
	"github.com/blockberries/rollberry/modules"
	"github.com/blockberries/rollberry/modules/bank"
	"github.com/blockberries/rollberry/runner"
	"github.com/blockberries/rollberry/schema"
	"github.com/blockberries/rollberry/state"
	"github.com/blockberries/rollberry/statestore"
	"github.com/blockberries/rollberry/types"
	"github.com/blockberries/rollberry/witness"
)

// Node is the main coordinator for a rollberry instance.
// It aggregates all components and manages their lifecycle.
type Node struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *schema.Registry

	// Stores
	engine    statestore.StateStore
	committed *state.CommittedStore
	archive   witness.Store

	// Execution
	mods   []modules.Module
	native *runner.Runner

	// Observability
	metrics    metrics.Metrics
	prom       *metrics.PrometheusMetrics
	metricsSrv *http.Server

	// Lifecycle
	started  bool
	lastSlot types.Slot
	rootTime time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// Option is a functional option for configuring a Node.
type Option func(*Node)

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(n *Node) {
		n.logger = logger
	}
}

// WithMetrics sets a custom metrics collector.
func WithMetrics(m metrics.Metrics) Option {
	return func(n *Node) {
		n.metrics = m
	}
}

// WithStateStore sets a custom state storage engine.
func WithStateStore(engine statestore.StateStore) Option {
	return func(n *Node) {
		n.engine = engine
	}
}

// WithWitnessStore sets a custom witness archive.
func WithWitnessStore(store witness.Store) Option {
	return func(n *Node) {
		n.archive = store
	}
}

// WithModules sets the business-logic modules. Without this option the
// node wires a bank module for every configured module declaring the
// bank fields.
func WithModules(mods ...modules.Module) Option {
	return func(n *Node) {
		n.mods = mods
	}
}

// NewNode creates a new rollberry node with the given configuration.
// The node is not started until Start() is called.
func NewNode(cfg *config.Config, opts ...Option) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	registry, err := schema.NewRegistry(cfg.Modules)
	if err != nil {
		return nil, fmt.Errorf("building schema registry: %w", err)
	}

	n := &Node{
		cfg:      cfg,
		registry: registry,
		stopCh:   make(chan struct{}),
	}

	// Apply options before creating defaults
	for _, opt := range opts {
		opt(n)
	}

	if n.logger == nil {
		n.logger = buildLogger(cfg.Logging)
	}
	n.logger = n.logger.With(logging.ChainID(cfg.Rollup.ChainID))

	if n.metrics == nil {
		if cfg.Metrics.Enabled {
			n.prom = metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
			n.metrics = n.prom
		} else {
			n.metrics = metrics.NewNopMetrics()
		}
	}

	if n.engine == nil || n.archive == nil {
		if err := cfg.EnsureDataDirs(); err != nil {
			return nil, err
		}
	}

	if n.engine == nil {
		engine, err := statestore.NewIAVLStore(cfg.StateStore.Path, cfg.StateStore.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("opening state store: %w", err)
		}
		n.engine = engine
	}

	if n.archive == nil {
		archive, err := openWitnessStore(cfg.Witness)
		if err != nil {
			n.engine.Close()
			return nil, fmt.Errorf("opening witness archive: %w", err)
		}
		n.archive = archive
	}

	n.committed, err = state.NewCommittedStore(n.engine)
	if err != nil {
		n.closeStores()
		return nil, fmt.Errorf("loading committed state: %w", err)
	}
	n.committed.SetMetrics(n.metrics)

	if n.mods == nil {
		n.mods, err = defaultModules(registry, cfg.Modules)
		if err != nil {
			n.closeStores()
			return nil, err
		}
	}

	n.native, err = runner.NewNative(n.committed, n.mods, n.logger, n.metrics)
	if err != nil {
		n.closeStores()
		return nil, err
	}

	n.lastSlot = n.archive.MaxSlot()
	n.rootTime = time.Now()
	n.metrics.SetSlot(n.lastSlot.Int64())
	n.metrics.SetStateStoreVersion(n.engine.Version())

	return n, nil
}

// defaultModules wires a bank module for every configured module that
// declares the bank fields.
func defaultModules(registry *schema.Registry, configured []config.ModuleConfig) ([]modules.Module, error) {
	var mods []modules.Module
	for _, mc := range configured {
		b, err := bank.New(registry, mc.Name)
		if err != nil {
			return nil, fmt.Errorf("module %q has no implementation: %w", mc.Name, err)
		}
		mods = append(mods, b)
	}
	return mods, nil
}

// openWitnessStore opens the configured witness archive backend.
func openWitnessStore(cfg config.WitnessConfig) (witness.Store, error) {
	switch cfg.Backend {
	case config.WitnessBackendLevelDB:
		return witness.NewLevelDBStore(cfg.Path)
	case config.WitnessBackendBadgerDB:
		return witness.NewBadgerDBStore(cfg.Path)
	case config.WitnessBackendMemory:
		return witness.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("witness backend %q: %w", cfg.Backend, config.ErrInvalidWitnessBackend)
	}
}

// buildLogger constructs a logger from the logging configuration.
func buildLogger(cfg config.LoggingConfig) *logging.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		return logging.NewJSONLogger(os.Stdout, level)
	}
	return logging.NewTextLogger(os.Stderr, level)
}

// Start starts the node's background services.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return fmt.Errorf("node already started")
	}

	if n.cfg.Metrics.Enabled && n.prom != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", n.prom.HTTPHandler())
		n.metricsSrv = &http.Server{
			Addr:    n.cfg.Metrics.ListenAddr,
			Handler: mux,
		}
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				n.logger.Error("metrics server failed", logging.Error(err))
			}
		}()
		n.logger.Info("metrics server started", "addr", n.cfg.Metrics.ListenAddr)
	}

	n.started = true
	n.logger.Info("node started",
		logging.Slot(n.lastSlot),
		logging.Root(n.committed.Root()),
		logging.Count(len(n.mods)))
	return nil
}

// Stop stops the node and releases all resources.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.metricsSrv.Shutdown(ctx); err != nil {
			n.logger.Error("metrics server shutdown failed", logging.Error(err))
		}
		n.metricsSrv = nil
	}
	if n.stopCh != nil {
		close(n.stopCh)
		n.stopCh = nil
	}
	n.wg.Wait()

	err := n.closeStores()
	n.started = false
	n.logger.Info("node stopped")
	return err
}

func (n *Node) closeStores() error {
	var errs []error
	if n.archive != nil {
		if err := n.archive.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing witness archive: %w", err))
		}
	}
	if n.engine != nil {
		if err := n.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing state store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RunSlot executes a batch of operations as the next slot, archives the
// recorded witness, and returns the slot, its new root and the per-op
// results.
func (n *Node) RunSlot(ctx context.Context, ops []modules.Operation) (types.Slot, types.Root, *runner.BatchResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	slot := n.lastSlot + 1
	prev := n.committed.Root()
	n.metrics.SetSlotRootAge(time.Since(n.rootTime))

	if err := n.native.BeginSlot(slot, prev); err != nil {
		return 0, nil, nil, err
	}

	result, err := n.native.ApplyBatch(ctx, ops)
	if err != nil {
		return 0, nil, result, fmt.Errorf("slot %d: %w", slot, err)
	}

	root, rec, err := n.native.EndSlot()
	if err != nil {
		return 0, nil, result, fmt.Errorf("slot %d: %w", slot, err)
	}

	if err := n.archive.SaveWitness(slot, rec); err != nil {
		// The slot is committed; a failed archive write is reported but
		// does not undo it.
		return slot, root, result, fmt.Errorf("archiving witness for slot %d: %w", slot, err)
	}

	if n.cfg.Witness.RetainSlots > 0 {
		if _, err := n.archive.Prune(n.cfg.Witness.RetainSlots); err != nil {
			n.logger.Warn("witness pruning failed", logging.Slot(slot), logging.Error(err))
		}
	}

	n.lastSlot = slot
	n.rootTime = time.Now()
	n.metrics.SetSlotRootAge(0)
	n.metrics.SetStateStoreVersion(n.engine.Version())
	return slot, root, result, nil
}

// VerifySlot re-executes a slot's operations against its archived
// witness and returns the root the verification run produced.
func (n *Node) VerifySlot(ctx context.Context, slot types.Slot, prevRoot types.Root, ops []modules.Operation) (types.Root, error) {
	w, err := n.archive.LoadWitness(slot)
	if err != nil {
		return nil, fmt.Errorf("loading witness for slot %d: %w", slot, err)
	}

	v, err := runner.NewVerifier(n.mods, n.logger, n.metrics)
	if err != nil {
		return nil, err
	}

	if err := v.BeginVerifySlot(slot, prevRoot, w); err != nil {
		return nil, err
	}
	if _, err := v.ApplyBatch(ctx, ops); err != nil {
		return nil, fmt.Errorf("slot %d: %w", slot, err)
	}
	root, _, err := v.EndSlot()
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", slot, err)
	}
	return root, nil
}

// Query reads a value from committed state by module, field and sub-key.
func (n *Node) Query(moduleName, fieldName string, subKey []byte) (types.StorageValue, bool, error) {
	key, err := n.queryKey(moduleName, fieldName, subKey)
	if err != nil {
		return nil, false, err
	}
	return n.committed.Get(key)
}

// QueryProof returns a merkle proof for a key in the durable engine.
// The proof verifies against the engine's tree hash, not the slot root.
func (n *Node) QueryProof(moduleName, fieldName string, subKey []byte) (*statestore.Proof, error) {
	key, err := n.queryKey(moduleName, fieldName, subKey)
	if err != nil {
		return nil, err
	}
	return n.engine.GetProof(key)
}

func (n *Node) queryKey(moduleName, fieldName string, subKey []byte) (types.StorageKey, error) {
	desc, err := n.registry.ModuleByName(moduleName)
	if err != nil {
		return nil, err
	}
	field, err := desc.FieldByName(fieldName)
	if err != nil {
		return nil, err
	}
	return n.registry.DeriveKey(desc.ID, field.ID, subKey)
}

// Root returns the current committed slot root.
func (n *Node) Root() types.Root {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.committed.Root()
}

// LastSlot returns the last committed slot.
func (n *Node) LastSlot() types.Slot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastSlot
}

// ChainID returns the configured rollup chain id.
func (n *Node) ChainID() string {
	return n.cfg.Rollup.ChainID
}

// Registry returns the node's schema registry.
func (n *Node) Registry() *schema.Registry {
	return n.registry
}
