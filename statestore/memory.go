package statestore

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and the demo command.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	raw, err := marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Entry{Value: raw, UpdatedAt: time.Now().UTC()}
	return nil
}

func (m *Memory) CompareAndSwap(_ context.Context, key string, old, value any) (bool, error) {
	raw, err := marshal(value)
	if err != nil {
		return false, err
	}
	oldRaw, err := marshal(old)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.entries[key]
	if old == nil {
		if exists {
			return false, nil
		}
	} else {
		if !exists || !bytes.Equal(cur.Value, oldRaw) {
			return false, nil
		}
	}

	m.entries[key] = Entry{Value: raw, UpdatedAt: time.Now().UTC()}
	return true, nil
}
