package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MemoryStorage keeps objects in process memory. It backs dry runs of the operator CLI and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (m *MemoryStorage) PutJSON(ctx context.Context, objectKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode object %q", objectKey)
	}
	m.mu.Lock()
	m.objects[objectKey] = body
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) GetJSON(ctx context.Context, objectKey string, v any) error {
	m.mu.RLock()
	body, ok := m.objects[objectKey]
	m.mu.RUnlock()
	if !ok {
		return ErrObjectNotFound
	}
	return errors.Wrapf(json.Unmarshal(body, v), "decode object %q", objectKey)
}

func (m *MemoryStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[objectKey]; !ok {
		return "", ErrObjectNotFound
	}
	return "memory://" + objectKey, nil
}

func (m *MemoryStorage) DeleteObject(ctx context.Context, objectKey string) error {
	m.mu.Lock()
	delete(m.objects, objectKey)
	m.mu.Unlock()
	return nil
}

// Keys lists stored object keys.
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
