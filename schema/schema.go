// Package schema defines the module/field registry and storage key
// derivation for rollberry.
//
// Every module's persistent state lives in a disjoint key-space of the
// shared store. A storage key is the fixed-width big-endian module id and
// field id followed by the raw sub-key:
//
//	be32(module id) || be32(field id) || subKey
//
// The 8-byte prefix is fixed width, so distinct (module, field) pairs
// always differ within the prefix and distinct sub-keys differ after it.
// Keys are deliberately left unhashed so the query layer can iterate a
// field's entries by prefix.
package schema

import (
	"encoding/binary"
	"fmt"

	"github.com/blockberries/rollberry/config"
	"github.com/blockberries/rollberry/types"
)

// KeyPrefixSize is the length of the module/field prefix in bytes.
const KeyPrefixSize = 8

// FieldDescriptor identifies one declared state field of a module.
type FieldDescriptor struct {
	// ID is the field's numeric identifier, unique within the module.
	ID uint32

	// Name is the field's name, unique within the module.
	Name string
}

// ModuleDescriptor identifies a module and enumerates its state fields.
// Descriptors are created once at configuration time and are immutable.
type ModuleDescriptor struct {
	// ID is the module's numeric identifier, unique within the rollup.
	ID uint32

	// Name is the module's name, unique within the rollup.
	Name string

	// Fields enumerates the module's declared state fields.
	Fields []FieldDescriptor
}

// Field returns the descriptor for a field id.
func (m *ModuleDescriptor) Field(fieldID uint32) (FieldDescriptor, error) {
	for _, f := range m.Fields {
		if f.ID == fieldID {
			return f, nil
		}
	}
	return FieldDescriptor{}, fmt.Errorf("field %d in module %q: %w", fieldID, m.Name, types.ErrFieldNotFound)
}

// FieldByName returns the descriptor for a field name.
func (m *ModuleDescriptor) FieldByName(name string) (FieldDescriptor, error) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	return FieldDescriptor{}, fmt.Errorf("field %q in module %q: %w", name, m.Name, types.ErrFieldNotFound)
}

// Registry holds the immutable set of module descriptors for one rollup
// instance and derives storage keys for them.
type Registry struct {
	byID   map[uint32]*ModuleDescriptor
	byName map[string]*ModuleDescriptor
}

// NewRegistry builds a registry from module configuration.
// It verifies uniqueness of module ids and names, field ids and names
// within each module, and runs the exhaustive pairwise collision check
// over every registered (module, field) key prefix. Any violation is
// reported as a configuration-time error and must abort startup.
func NewRegistry(modules []config.ModuleConfig) (*Registry, error) {
	r := &Registry{
		byID:   make(map[uint32]*ModuleDescriptor, len(modules)),
		byName: make(map[string]*ModuleDescriptor, len(modules)),
	}

	for _, mc := range modules {
		if mc.ID == 0 {
			return nil, fmt.Errorf("module %q: id 0 is reserved for internal metadata", mc.Name)
		}
		if _, ok := r.byID[mc.ID]; ok {
			return nil, fmt.Errorf("module %q id %d: %w", mc.Name, mc.ID, types.ErrDuplicateModule)
		}
		if _, ok := r.byName[mc.Name]; ok {
			return nil, fmt.Errorf("module %q: %w", mc.Name, types.ErrDuplicateModule)
		}

		desc := &ModuleDescriptor{
			ID:     mc.ID,
			Name:   mc.Name,
			Fields: make([]FieldDescriptor, 0, len(mc.Fields)),
		}
		seenFieldIDs := make(map[uint32]struct{}, len(mc.Fields))
		seenFieldNames := make(map[string]struct{}, len(mc.Fields))
		for _, fc := range mc.Fields {
			if _, ok := seenFieldIDs[fc.ID]; ok {
				return nil, fmt.Errorf("module %q field %q id %d: %w", mc.Name, fc.Name, fc.ID, types.ErrDuplicateField)
			}
			if _, ok := seenFieldNames[fc.Name]; ok {
				return nil, fmt.Errorf("module %q field %q: %w", mc.Name, fc.Name, types.ErrDuplicateField)
			}
			seenFieldIDs[fc.ID] = struct{}{}
			seenFieldNames[fc.Name] = struct{}{}
			desc.Fields = append(desc.Fields, FieldDescriptor{ID: fc.ID, Name: fc.Name})
		}

		r.byID[mc.ID] = desc
		r.byName[mc.Name] = desc
	}

	if err := r.checkCollisions(); err != nil {
		return nil, err
	}

	return r, nil
}

// checkCollisions verifies pairwise that no two registered (module, field)
// pairs derive the same key prefix. The construction makes a collision
// impossible, but the registry is the trust anchor for key-space
// isolation, so the invariant is checked rather than assumed.
func (r *Registry) checkCollisions() error {
	seen := make(map[string]string)
	for _, m := range r.byID {
		for _, f := range m.Fields {
			prefix := string(keyPrefix(m.ID, f.ID))
			if prev, ok := seen[prefix]; ok {
				return fmt.Errorf("%s/%s and %s derive the same prefix: %w",
					m.Name, f.Name, prev, types.ErrKeyCollision)
			}
			seen[prefix] = m.Name + "/" + f.Name
		}
	}
	return nil
}

// Module returns the descriptor for a module id.
func (r *Registry) Module(moduleID uint32) (*ModuleDescriptor, error) {
	m, ok := r.byID[moduleID]
	if !ok {
		return nil, fmt.Errorf("module %d: %w", moduleID, types.ErrModuleNotFound)
	}
	return m, nil
}

// ModuleByName returns the descriptor for a module name.
func (r *Registry) ModuleByName(name string) (*ModuleDescriptor, error) {
	m, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("module %q: %w", name, types.ErrModuleNotFound)
	}
	return m, nil
}

// Modules returns the number of registered modules.
func (r *Registry) Modules() int {
	return len(r.byID)
}

// DeriveKey derives the storage key for (module, field, subKey).
// The derivation is pure and stable across process restarts and across
// native/verification execution; its only failure mode is an unregistered
// module or field. subKey may be nil for singleton fields.
func (r *Registry) DeriveKey(moduleID, fieldID uint32, subKey []byte) (types.StorageKey, error) {
	m, err := r.Module(moduleID)
	if err != nil {
		return nil, err
	}
	if _, err := m.Field(fieldID); err != nil {
		return nil, err
	}

	key := make([]byte, KeyPrefixSize+len(subKey))
	binary.BigEndian.PutUint32(key[0:4], moduleID)
	binary.BigEndian.PutUint32(key[4:8], fieldID)
	copy(key[KeyPrefixSize:], subKey)
	return key, nil
}

// Prefix returns the key prefix covering every entry of (module, field).
// Used by the query layer for prefix iteration over a field's entries.
func (r *Registry) Prefix(moduleID, fieldID uint32) (types.StorageKey, error) {
	m, err := r.Module(moduleID)
	if err != nil {
		return nil, err
	}
	if _, err := m.Field(fieldID); err != nil {
		return nil, err
	}
	return keyPrefix(moduleID, fieldID), nil
}

func keyPrefix(moduleID, fieldID uint32) types.StorageKey {
	prefix := make([]byte, KeyPrefixSize)
	binary.BigEndian.PutUint32(prefix[0:4], moduleID)
	binary.BigEndian.PutUint32(prefix[4:8], fieldID)
	return prefix
}
