package witness

import (
	"sync"

	"github.com/blockberries/rollberry/types"
)

// MemoryStore implements Store with in-memory storage.
// Primarily used for testing and single-process verification runs.
type MemoryStore struct {
	witnesses map[types.Slot][]byte
	maxSlot   types.Slot
	closed    bool
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory witness store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		witnesses: make(map[types.Slot][]byte),
	}
}

// SaveWitness stores the witness for a slot.
func (m *MemoryStore) SaveWitness(slot types.Slot, w *Witness) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return types.ErrStoreClosed
	}
	if _, exists := m.witnesses[slot]; exists {
		return types.ErrWitnessExists
	}

	// Encoded form doubles as a defensive copy
	m.witnesses[slot] = Encode(w)
	if slot > m.maxSlot {
		m.maxSlot = slot
	}
	return nil
}

// LoadWitness retrieves the witness for a slot.
func (m *MemoryStore) LoadWitness(slot types.Slot) (*Witness, error) {
	m.mu.RLock()
	closed := m.closed
	data, exists := m.witnesses[slot]
	m.mu.RUnlock()

	if closed {
		return nil, types.ErrStoreClosed
	}
	if !exists {
		return nil, types.ErrWitnessNotFound
	}
	return Decode(data)
}

// HasWitness checks if a witness exists for a slot.
func (m *MemoryStore) HasWitness(slot types.Slot) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false
	}
	_, exists := m.witnesses[slot]
	return exists
}

// MaxSlot returns the highest slot with an archived witness.
func (m *MemoryStore) MaxSlot() types.Slot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.maxSlot
}

// Prune removes witnesses older than MaxSlot() - keepRecent.
func (m *MemoryStore) Prune(keepRecent int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, types.ErrStoreClosed
	}

	cutoff := m.maxSlot - types.Slot(keepRecent)
	pruned := 0
	for slot := range m.witnesses {
		if slot <= cutoff {
			delete(m.witnesses, slot)
			pruned++
		}
	}
	return pruned, nil
}

// Close marks the store closed. Closing twice is harmless.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
