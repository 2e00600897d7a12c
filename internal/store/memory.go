package store

import (
	"context"
	"sort"
	"sync"

	"marketanalysis/internal/models"
)

// Memory is an in-process Store, used by tests in place of sqlite.
type Memory struct {
	mu   sync.RWMutex
	data map[string]models.Analysis
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]models.Analysis)}
}

func (m *Memory) Upsert(ctx context.Context, a models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[a.Symbol] = a
	return nil
}

func (m *Memory) Get(ctx context.Context, symbol string) (*models.Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.data[symbol]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) All(ctx context.Context) ([]models.Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Analysis, 0, len(m.data))
	for _, a := range m.data {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data), nil
}

func (m *Memory) Close() error { return nil }
