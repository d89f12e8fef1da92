package docstore

import (
	"context"
	"sync"
)

// Memory is a process-local Store. Handy for tests and the "memory" backend.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Fields
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Fields)}
}

func memKey(collection, id string) string { return collection + "/" + id }

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ValidateKey(collection, id); err != nil {
		return Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	f, ok := m.docs[memKey(collection, id)]
	m.mu.RUnlock()
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{Collection: collection, ID: id, Fields: cloneFields(f)}, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, fields Fields) error {
	if err := ValidateKey(collection, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[memKey(collection, id)] = cloneFields(fields)
	m.mu.Unlock()
	return nil
}
