package store

import (
	"context"
	"strings"
	"sync"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

// Memory keeps items in process. It backs demo mode and tests.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]core.ExistingItem

	// FailOn makes Create fail for matching item names.
	FailOn func(name string) error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]core.ExistingItem)}
}

// Seed adds pre-existing items for a resident.
func (m *Memory) Seed(residentID string, items ...core.ExistingItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[residentID] = append(m.items[residentID], items...)
}

func (m *Memory) Snapshot(ctx context.Context, residentID string) ([]core.ExistingItem, error) {
	if strings.TrimSpace(residentID) == "" {
		return nil, ErrMissingResident
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.ExistingItem{}, m.items[residentID]...), nil
}

func (m *Memory) Create(ctx context.Context, item NewItem) (string, error) {
	if err := checkNewItem(item); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.FailOn != nil {
		if err := m.FailOn(item.Fields.ItemName); err != nil {
			return "", err
		}
	}

	sched := ScheduleFor(item.Fields)
	it := core.ExistingItem{ID: newID(), ItemName: item.Fields.ItemName, Schedule: &sched}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ResidentID] = append(m.items[item.ResidentID], it)
	return it.ID, nil
}

// Count returns the number of items stored for a resident.
func (m *Memory) Count(residentID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items[residentID])
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
