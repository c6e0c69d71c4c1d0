// internal/store/memory.go
//
// In-memory implementation of the KV interface.
// This is the ephemeral persistence layer, used in development/testing or when
// best scores do not need to survive a restart.
//
// Characteristics:
//   - Values are kept in a map keyed by namespace and key.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"
)

// KV is durable key-value persistence partitioned by namespace (one per player).
// Implementations may be backed by memory (this file), SQLite, etc.
type KV interface {
	// Get returns the value stored under ns/key and whether it exists.
	Get(ctx context.Context, ns, key string) (string, bool, error)

	// Set stores or replaces the value under ns/key.
	Set(ctx context.Context, ns, key, value string) error
}

type memKey struct{ ns, key string }

// memory is an in-memory map-based KV implementation.
type memory struct {
	mu   sync.RWMutex      // guards vals
	vals map[memKey]string // keyed by namespace + key
}

// NewMemoryStore constructs a new in-memory KV.
func NewMemoryStore() KV {
	return &memory{vals: make(map[memKey]string)}
}

func (m *memory) Get(ctx context.Context, ns, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[memKey{ns, key}]
	return v, ok, nil
}

func (m *memory) Set(ctx context.Context, ns, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[memKey{ns, key}] = value
	return nil
}

// Scoped binds kv to one namespace so callers see plain keys such as "best8".
func Scoped(kv KV, ns string) *Namespace {
	return &Namespace{kv: kv, ns: ns}
}

// Namespace is a KV view restricted to a single namespace.
type Namespace struct {
	kv KV
	ns string
}

func (n *Namespace) Get(ctx context.Context, key string) (string, bool, error) {
	return n.kv.Get(ctx, n.ns, key)
}

func (n *Namespace) Set(ctx context.Context, key, value string) error {
	return n.kv.Set(ctx, n.ns, key, value)
}
