package witness

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/blockberries/rollberry/types"
)

// Key layout for LevelDB storage.
var (
	prefixWitness = []byte("W:") // W:<slot> -> encoded witness
	keyMetaMax    = []byte("M:max")
)

// LevelDBStore implements Store using LevelDB.
type LevelDBStore struct {
	db      *leveldb.DB
	path    string
	maxSlot types.Slot
	closed  bool
	mu      sync.RWMutex
}

// NewLevelDBStore creates a new LevelDB-backed witness store.
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		NoSync: false, // Ensure durability
	})
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}

	store := &LevelDBStore{
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
func (s *LevelDBStore) loadMetadata() error {
	data, err := s.db.Get(keyMetaMax, nil)
	if err == nil {
		s.maxSlot = types.Slot(decodeInt64(data))
		return nil
	}
	if err == leveldb.ErrNotFound {
		return nil
	}
	return fmt.Errorf("reading max slot: %w", err)
}

// SaveWitness persists the witness for a slot.
func (s *LevelDBStore) SaveWitness(slot types.Slot, w *Witness) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}

	slotKey := makeSlotKey(slot)
	exists, err := s.db.Has(slotKey, nil)
	if err != nil {
		return fmt.Errorf("checking witness existence: %w", err)
	}
	if exists {
		return types.ErrWitnessExists
	}

	batch := new(leveldb.Batch)
	batch.Put(slotKey, Encode(w))

	maxSlot := s.maxSlot
	if slot > maxSlot {
		maxSlot = slot
		batch.Put(keyMetaMax, encodeInt64(slot.Int64()))
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("writing witness: %w", err)
	}

	s.maxSlot = maxSlot
	return nil
}

// LoadWitness retrieves the witness for a slot.
func (s *LevelDBStore) LoadWitness(slot types.Slot) (*Witness, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}

	data, err := s.db.Get(makeSlotKey(slot), nil)
	if err == leveldb.ErrNotFound {
		return nil, types.ErrWitnessNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading witness: %w", err)
	}
	return Decode(data)
}

// HasWitness checks if a witness exists for a slot.
func (s *LevelDBStore) HasWitness(slot types.Slot) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	exists, err := s.db.Has(makeSlotKey(slot), nil)
	return err == nil && exists
}

// MaxSlot returns the highest slot with an archived witness.
func (s *LevelDBStore) MaxSlot() types.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.maxSlot
}

// Prune removes witnesses older than MaxSlot() - keepRecent.
func (s *LevelDBStore) Prune(keepRecent int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, types.ErrStoreClosed
	}

	cutoff := s.maxSlot - types.Slot(keepRecent)
	if cutoff <= 0 {
		return 0, nil
	}

	batch := new(leveldb.Batch)
	pruned := 0

	iter := s.db.NewIterator(util.BytesPrefix(prefixWitness), nil)
	defer iter.Release()
	for iter.Next() {
		slot, ok := parseSlotKey(iter.Key())
		if !ok || slot > cutoff {
			continue
		}
		batch.Delete(append([]byte(nil), iter.Key()...))
		pruned++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("iterating witnesses: %w", err)
	}

	if pruned > 0 {
		if err := s.db.Write(batch, nil); err != nil {
			return 0, fmt.Errorf("deleting witnesses: %w", err)
		}
	}
	return pruned, nil
}

// Close closes the store and releases resources. Closing twice is
// harmless.
func (s *LevelDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// makeSlotKey builds the storage key for a slot's witness.
func makeSlotKey(slot types.Slot) []byte {
	key := make([]byte, len(prefixWitness)+8)
	copy(key, prefixWitness)
	binary.BigEndian.PutUint64(key[len(prefixWitness):], uint64(slot))
	return key
}

// parseSlotKey extracts the slot from a witness storage key.
func parseSlotKey(key []byte) (types.Slot, bool) {
	if len(key) != len(prefixWitness)+8 {
		return 0, false
	}
	return types.Slot(binary.BigEndian.Uint64(key[len(prefixWitness):])), true
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt64(data []byte) int64 {
	if len(data) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(data))
}
