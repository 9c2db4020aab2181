package store

import (
	"context"
	"sync"
)

// MemoryKV keeps values in process memory. It also reports changes, which
// makes it a stand-in for the file backend in tests.
type MemoryKV struct {
	mu       sync.Mutex
	data     map[string][]byte
	watchers map[string][]func(Change)
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data:     make(map[string][]byte),
		watchers: make(map[string][]func(Change)),
	}
}

// Get implements KV.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Set implements KV.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	fns := append([]func(Change){}, m.watchers[key]...)
	m.mu.Unlock()
	for _, fn := range fns {
		go fn(Change{Key: key})
	}
	return nil
}

// Delete implements KV.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.data[key]
	delete(m.data, key)
	fns := append([]func(Change){}, m.watchers[key]...)
	m.mu.Unlock()
	if existed {
		for _, fn := range fns {
			go fn(Change{Key: key, Deleted: true})
		}
	}
	return nil
}

// Watch implements Watcher. Callbacks stop once ctx is done.
func (m *MemoryKV) Watch(ctx context.Context, key string, fn func(Change)) error {
	guarded := func(c Change) {
		if ctx.Err() == nil {
			fn(c)
		}
	}
	m.mu.Lock()
	m.watchers[key] = append(m.watchers[key], guarded)
	m.mu.Unlock()
	return nil
}

// Close implements KV.
func (m *MemoryKV) Close() error { return nil }
