package state

import (
	"fmt"
	"sort"

	"github.com/blockberries/rollberry/commitment"
	"github.com/blockberries/rollberry/metrics"
	"github.com/blockberries/rollberry/statestore"
	"github.com/blockberries/rollberry/types"
)

// CommittedStore implements SlotStore over a durable merkleized engine.
//
// The slot root is the chained write-set digest (see package commitment),
// persisted in the engine under a reserved metadata key so it survives
// restarts. The engine's own tree hash authenticates the full key space
// and backs the query layer's proofs; it is not the slot root.
type CommittedStore struct {
	engine   statestore.StateStore
	root     types.Root
	staged   map[string]commitment.Entry
	stagedKs []string
	metrics  metrics.Metrics
}

// NewCommittedStore opens a committed store over a durable engine.
// The slot root is loaded from engine metadata; a fresh engine starts at
// the genesis root.
func NewCommittedStore(engine statestore.StateStore) (*CommittedStore, error) {
	root, err := engine.Get(metaRootKey)
	if err != nil {
		return nil, fmt.Errorf("%w: loading slot root: %v", types.ErrBackendIO, err)
	}
	if root == nil {
		root = types.GenesisRoot()
	}

	return &CommittedStore{
		engine:  engine,
		root:    root,
		staged:  make(map[string]commitment.Entry),
		metrics: metrics.NewNopMetrics(),
	}, nil
}

// SetMetrics attaches a metrics collector for store operation counters.
func (s *CommittedStore) SetMetrics(m metrics.Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Get reads a key through the batch's merged view: writes staged in the
// current batch first, then committed state.
func (s *CommittedStore) Get(key types.StorageKey) (types.StorageValue, bool, error) {
	s.metrics.IncStateStoreGets()

	if e, ok := s.staged[string(key)]; ok {
		if e.Delete {
			return nil, false, nil
		}
		return e.Value.Clone(), true, nil
	}

	value, err := s.engine.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading key %s: %v", types.ErrBackendIO, key, err)
	}
	if value != nil {
		return value, true, nil
	}

	// A stored empty value can come back nil from the engine; only Has
	// can tell it apart from absence.
	has, err := s.engine.Has(key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: checking key %s: %v", types.ErrBackendIO, key, err)
	}
	if !has {
		return nil, false, nil
	}
	return types.StorageValue{}, true, nil
}

// Stage buffers a write for the current batch.
func (s *CommittedStore) Stage(key types.StorageKey, value types.StorageValue) error {
	s.metrics.IncStateStoreSets()
	s.stage(commitment.Entry{Key: key.Clone(), Value: value.Clone()})
	return nil
}

// StageDelete buffers a deletion for the current batch.
func (s *CommittedStore) StageDelete(key types.StorageKey) error {
	s.metrics.IncStateStoreDeletes()
	s.stage(commitment.Entry{Key: key.Clone(), Delete: true})
	return nil
}

func (s *CommittedStore) stage(e commitment.Entry) {
	k := string(e.Key)
	if _, seen := s.staged[k]; !seen {
		s.stagedKs = append(s.stagedKs, k)
	}
	s.staged[k] = e
}

// Root returns the slot root of the last committed slot.
func (s *CommittedStore) Root() types.Root {
	return s.root.Clone()
}

// Commit applies all staged writes atomically, persists the new slot
// root, and saves a new engine version. All-or-nothing: any failure
// rolls the engine's working tree back and leaves the previous root.
func (s *CommittedStore) Commit() (types.Root, error) {
	if len(s.staged) == 0 {
		return s.root.Clone(), nil
	}

	tree := commitment.NewTree()
	for _, e := range s.staged {
		tree.Add(e)
	}
	newRoot := commitment.ChainRoot(s.root, tree.Root())

	// Deterministic apply order
	keys := append([]string(nil), s.stagedKs...)
	sort.Strings(keys)

	for _, k := range keys {
		e := s.staged[k]
		var err error
		if e.Delete {
			err = s.engine.Delete(e.Key)
		} else {
			value := e.Value
			if value == nil {
				value = types.StorageValue{}
			}
			err = s.engine.Set(e.Key, value)
		}
		if err != nil {
			s.engine.Rollback()
			return nil, fmt.Errorf("%w: applying write for %s: %v", types.ErrBackendIO, e.Key, err)
		}
	}

	if err := s.engine.Set(metaRootKey, newRoot); err != nil {
		s.engine.Rollback()
		return nil, fmt.Errorf("%w: persisting slot root: %v", types.ErrBackendIO, err)
	}

	if _, _, err := s.engine.Commit(); err != nil {
		s.engine.Rollback()
		return nil, fmt.Errorf("%w: committing version: %v", types.ErrBackendIO, err)
	}

	s.root = newRoot
	s.clearStaged()
	return newRoot.Clone(), nil
}

// Discard drops all staged writes and any uncommitted engine changes.
func (s *CommittedStore) Discard() error {
	s.engine.Rollback()
	s.clearStaged()
	return nil
}

func (s *CommittedStore) clearStaged() {
	s.staged = make(map[string]commitment.Entry)
	s.stagedKs = s.stagedKs[:0]
}
