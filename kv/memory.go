package kv

import (
	"sync"
	"time"
)

type memoryItem struct {
	value    string
	deadline time.Time // zero means no expiry
}

// Memory is an in-process KeyValueStore with real TTL semantics.
// It backs tests and the dev mode where no Redis is reachable.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
}

var _ KeyValueStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem)}
}

func (m *Memory) Set(key, value string, exp time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memoryItem{value: value}
	if exp > 0 {
		item.deadline = time.Now().Add(exp)
	}
	m.items[key] = item
	return nil
}

func (m *Memory) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.live(key)
	if !ok {
		return "", ErrNotFound
	}
	return item.value, nil
}

func (m *Memory) Exists(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.live(key)
	return ok, nil
}

func (m *Memory) Del(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live(key); !ok {
		return "", ErrNotFound
	}
	delete(m.items, key)
	return key, nil
}

// TTL reports the remaining lifetime of a key. Zero means no expiry.
// Not part of KeyValueStore; tests use it to observe revocation TTLs.
func (m *Memory) TTL(key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.live(key)
	if !ok {
		return 0, ErrNotFound
	}
	if item.deadline.IsZero() {
		return 0, nil
	}
	return time.Until(item.deadline), nil
}

// live returns the item if present and unexpired, deleting it lazily otherwise.
// Callers must hold the lock.
func (m *Memory) live(key string) (memoryItem, bool) {
	item, ok := m.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if !item.deadline.IsZero() && time.Now().After(item.deadline) {
		delete(m.items, key)
		return memoryItem{}, false
	}
	return item, true
}
