package witness

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/blockberries/rollberry/types"
)

// BadgerDBStore implements Store using BadgerDB.
// BadgerDB is optimized for SSDs and offers better write performance
// than LevelDB for large witnesses.
type BadgerDBStore struct {
	db      *badger.DB
	path    string
	maxSlot types.Slot
	closed  bool
	mu      sync.RWMutex
}

// BadgerDBOptions contains configuration options for BadgerDB.
type BadgerDBOptions struct {
	// SyncWrites ensures durability by syncing writes to disk.
	// Default: true
	SyncWrites bool

	// Compression enables Snappy compression for values.
	// Default: true
	Compression bool
}

// DefaultBadgerDBOptions returns the default BadgerDB options.
func DefaultBadgerDBOptions() *BadgerDBOptions {
	return &BadgerDBOptions{
		SyncWrites:  true,
		Compression: true,
	}
}

// NewBadgerDBStore creates a new BadgerDB-backed witness store.
func NewBadgerDBStore(path string) (*BadgerDBStore, error) {
	return NewBadgerDBStoreWithOptions(path, DefaultBadgerDBOptions())
}

// NewBadgerDBStoreWithOptions creates a new BadgerDB-backed witness store
// with custom options.
func NewBadgerDBStoreWithOptions(path string, opts *BadgerDBOptions) (*BadgerDBStore, error) {
	if opts == nil {
		opts = DefaultBadgerDBOptions()
	}

	badgerOpts := badger.DefaultOptions(path)
	badgerOpts = badgerOpts.WithSyncWrites(opts.SyncWrites)
	badgerOpts = badgerOpts.WithLogger(nil)

	if opts.Compression {
		badgerOpts = badgerOpts.WithCompression(options.Snappy)
	} else {
		badgerOpts = badgerOpts.WithCompression(options.None)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badgerdb: %w", err)
	}

	store := &BadgerDBStore{
		db:   db,
		path: path,
	}

	if err := store.loadMetadata(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading metadata: %w", err)
	}

	return store, nil
}

// loadMetadata loads the max slot from the database.
func (s *BadgerDBStore) loadMetadata() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMetaMax)
		if err == nil {
			return item.Value(func(val []byte) error {
				s.maxSlot = types.Slot(decodeInt64(val))
				return nil
			})
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// SaveWitness persists the witness for a slot.
func (s *BadgerDBStore) SaveWitness(slot types.Slot, w *Witness) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}

	slotKey := makeSlotKey(slot)

	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(slotKey)
		if err == nil {
			return types.ErrWitnessExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(slotKey, Encode(w)); err != nil {
			return err
		}
		if slot > s.maxSlot {
			return txn.Set(keyMetaMax, encodeInt64(slot.Int64()))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrWitnessExists) {
			return types.ErrWitnessExists
		}
		return fmt.Errorf("writing witness: %w", err)
	}

	if slot > s.maxSlot {
		s.maxSlot = slot
	}
	return nil
}

// LoadWitness retrieves the witness for a slot.
func (s *BadgerDBStore) LoadWitness(slot types.Slot) (*Witness, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeSlotKey(slot))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, types.ErrWitnessNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading witness: %w", err)
	}
	return Decode(data)
}

// HasWitness checks if a witness exists for a slot.
func (s *BadgerDBStore) HasWitness(slot types.Slot) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(makeSlotKey(slot))
		return err
	})
	return err == nil
}

// MaxSlot returns the highest slot with an archived witness.
func (s *BadgerDBStore) MaxSlot() types.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.maxSlot
}

// Prune removes witnesses older than MaxSlot() - keepRecent.
func (s *BadgerDBStore) Prune(keepRecent int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, types.ErrStoreClosed
	}

	cutoff := s.maxSlot - types.Slot(keepRecent)
	if cutoff <= 0 {
		return 0, nil
	}

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.PrefetchValues = false
		itOpts.Prefix = prefixWitness
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			slot, ok := parseSlotKey(key)
			if ok && slot <= cutoff {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("iterating witnesses: %w", err)
	}

	if len(stale) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting witnesses: %w", err)
	}
	return len(stale), nil
}

// Close closes the store and releases resources. Closing twice is
// harmless.
func (s *BadgerDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
