// Package types provides common type definitions for rollberry.
package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Slot represents a slot number in the rollup's lifecycle.
// Slots are numbered from 1; slot 0 means "genesis, nothing committed".
type Slot int64

// Hash represents a cryptographic hash (32 bytes for SHA-256).
type Hash []byte

// Root represents a state commitment root produced by committing a slot.
type Root = Hash

// StorageKey is a derived storage key as raw bytes.
// Keys are produced by the schema registry and treated as opaque
// everywhere else.
type StorageKey []byte

// StorageValue is an opaque stored value as raw bytes.
// The structure of values is defined by the owning module's codec.
type StorageValue []byte

// String returns the slot as a string.
func (s Slot) String() string {
	return fmt.Sprintf("%d", s)
}

// Int64 returns the slot as an int64.
func (s Slot) Int64() int64 {
	return int64(s)
}

// String returns the hash as a hexadecimal string.
func (h Hash) String() string {
	return hex.EncodeToString(h)
}

// Bytes returns the raw bytes of the hash.
func (h Hash) Bytes() []byte {
	return []byte(h)
}

// IsEmpty returns true if the hash is nil or zero-length.
func (h Hash) IsEmpty() bool {
	return len(h) == 0
}

// Equal returns true if the hashes are equal.
func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h, other)
}

// Clone returns an independent copy of the hash.
func (h Hash) Clone() Hash {
	if h == nil {
		return nil
	}
	return append(Hash(nil), h...)
}

// String returns the key as a hexadecimal string.
func (k StorageKey) String() string {
	return hex.EncodeToString(k)
}

// Equal returns true if the keys are byte-equal.
func (k StorageKey) Equal(other StorageKey) bool {
	return bytes.Equal(k, other)
}

// Clone returns an independent copy of the key.
func (k StorageKey) Clone() StorageKey {
	if k == nil {
		return nil
	}
	return append(StorageKey(nil), k...)
}

// Clone returns an independent copy of the value.
// Cloning preserves the nil/absent distinction.
func (v StorageValue) Clone() StorageValue {
	if v == nil {
		return nil
	}
	return append(StorageValue(nil), v...)
}
