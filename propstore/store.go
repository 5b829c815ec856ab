package propstore

import (
	"fmt"
	"slices"
	"sync"
)

// Store is an in-memory slot cache. The owning Handler fills it through
// SetValueAndState; readers see it through Count, At and Value only.
// SetValue and Commit always fail with ErrReadOnly.
type Store struct {
	mu     sync.RWMutex
	keys   []Key
	values map[Key]Value
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[Key]Value)}
}

// SetValueAndState stores v under key. Keys keep their first insertion
// position.
func (s *Store) SetValueAndState(key Key, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	v.Texts = slices.Clone(v.Texts)
	s.values[key] = v
	return nil
}

// Count returns the number of slots.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// At returns the key at position i.
func (s *Store) At(i int) (Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.keys) {
		return "", fmt.Errorf("propstore: index %d out of range [0,%d)", i, len(s.keys))
	}
	return s.keys[i], nil
}

// Value returns the value of key. ok is false when the key was never set.
func (s *Store) Value(key Key) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if ok {
		v.Texts = slices.Clone(v.Texts)
	}
	return v, ok
}

// SetValue always fails: the store is read-only to its consumers.
func (s *Store) SetValue(Key, Value) error { return ErrReadOnly }

// Commit always fails.
func (s *Store) Commit() error { return ErrReadOnly }

// IsWritable reports false for every key.
func (s *Store) IsWritable(Key) bool { return false }

// Snapshot returns a copy of every slot, keyed by name.
func (s *Store) Snapshot() map[Key]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Key]Value, len(s.values))
	for k, v := range s.values {
		v.Texts = slices.Clone(v.Texts)
		out[k] = v
	}
	return out
}
