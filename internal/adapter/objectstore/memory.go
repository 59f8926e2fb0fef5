package objectstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store, useful for tests and local development
// without a real CDN-backed blob store configured.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

// NewMemory creates an empty Memory store. baseURL prefixes returned CDN
// URLs (e.g. "https://cdn.local/").
func NewMemory(baseURL string) *Memory {
	return &Memory{objects: map[string][]byte{}, baseURL: baseURL}
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, data []byte, _ Metadata) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp

	return m.baseURL + key, nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", key, ErrNotFound)
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	return cp, nil
}

// List implements Store.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)

	return nil
}

// SignedURL implements Store.
func (m *Memory) SignedURL(_ context.Context, key string, ttlSeconds int) (string, error) {
	return fmt.Sprintf("%s%s?ttl=%d", m.baseURL, key, ttlSeconds), nil
}
