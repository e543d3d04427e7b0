// Package kv defines the key-value settings store the streak core persists
// through, plus an in-memory implementation.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrStorageFull is returned (wrapped) when the store has no room left for a write.
var ErrStorageFull = errors.New("storage full")

// Store is a durable key-value store.
type Store interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set persists value under key.
	Set(ctx context.Context, key string, value []byte) error
}

// UpdateFunc computes the new value for a key from its current one. Returning
// a nil value leaves the stored value untouched.
type UpdateFunc func(old []byte, found bool) ([]byte, error)

// Updater is implemented by stores that can run a read-modify-write on one
// key atomically, including against other processes sharing the store.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Update runs fn against key, atomically when s implements Updater and as
// a plain Get then Set otherwise.
func Update(ctx context.Context, s Store, key string, fn UpdateFunc) error {
	if u, ok := s.(Updater); ok {
		return u.Update(ctx, key, fn)
	}
	old, found, err := s.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	value, err := fn(old, found)
	if err != nil || value == nil {
		return err
	}
	if err := s.Set(ctx, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// GetJSON decodes the value at key into v. It reports false, leaving v
// untouched, when key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Memory is an in-memory Store. A positive Limit caps the total bytes held
// and makes writes past it fail with ErrStorageFull.
type Memory struct {
	Limit int

	mu   sync.RWMutex
	data map[string][]byte
	size int
}

// NewMemory returns an empty unlimited Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(key, value)
}

// Update implements Updater. fn runs with the store locked and must not
// call back into m.
func (m *Memory) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, found := m.data[key]
	if found {
		old = append([]byte(nil), old...)
	}
	value, err := fn(old, found)
	if err != nil || value == nil {
		return err
	}
	return m.setLocked(key, value)
}

func (m *Memory) setLocked(key string, value []byte) error {
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	newSize := m.size - len(m.data[key]) + len(value)
	if m.Limit > 0 && newSize > m.Limit {
		return fmt.Errorf("write %d bytes to %s: %w", len(value), key, ErrStorageFull)
	}
	m.data[key] = append([]byte(nil), value...)
	m.size = newSize
	return nil
}

// Keys returns the stored keys in no particular order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
