package blob

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

type object struct {
	data        []byte
	contentType string
}

// Memory is a process-local Store. URLs use the memory:// scheme and are not fetchable.
type Memory struct {
	mu   sync.RWMutex
	objs map[string]object
}

func NewMemory() *Memory { return &Memory{objs: make(map[string]object)} }

func (m *Memory) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objs[key] = object{data: b, contentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objs, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objs[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return "memory://" + key, nil
}

// Get returns a copy of the object under key.
func (m *Memory) Get(key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objs[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return bytes.Clone(obj.data), obj.contentType, nil
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objs)
}
