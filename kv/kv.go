package kv

import (
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or already expired
var ErrNotFound = errors.New("key not found")

// KeyValueStore represents an interface for a TTL-capable key-value
// storage system. The token authority treats it as a capability: any
// store with per-key expiry satisfies it.
type KeyValueStore interface {
	// Set stores a key-value pair with optional expiration duration
	Set(key, value string, exp time.Duration) error
	// Get retrieves the value associated with the given key
	Get(key string) (string, error)
	// Exists reports whether the key is present and not expired
	Exists(key string) (bool, error)
	// Del removes the key-value pair and returns the deleted key
	Del(key string) (string, error)
}
