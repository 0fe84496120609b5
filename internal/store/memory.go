// internal/store/memory.go
//
// Form-instance stores.
//
// Context
// -------
// Open admin forms live between requests in one of two stores:
//
//   • Memory – a bounded LRU with idle expiry.  Fine for a single replica.
//   • Redis  – shared by every replica, expiry via key TTL.
//
// Both hold the JSON encoding of an instance, never a live pointer, so a
// handler can only change stored state through Put.  Both implement the
// per-instance lock that keeps one submission in flight.
//
// Notes
// -----
// • An instance that ages out behaves like a closed tab: the next POST
//   against it gets ErrInstanceNotFound.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/yanizio/catalog-admin/internal/cache"
	"github.com/yanizio/catalog-admin/internal/metrics"
	"github.com/yanizio/catalog-admin/internal/workflow"
)

// Memory is a process-local store.
type Memory struct {
	lru *cache.LRU[string, []byte]

	mu     sync.Mutex
	locked map[string]struct{}
}

// NewMemory returns a store holding at most capacity instances, each
// expiring ttl after its last write.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	return &Memory{
		lru:    cache.New[string, []byte](capacity, ttl),
		locked: make(map[string]struct{}),
	}
}

func (m *Memory) Get(_ context.Context, id string) (*workflow.Instance, error) {
	raw, ok := m.lru.Get(id)
	if !ok {
		return nil, workflow.ErrInstanceNotFound
	}
	var inst workflow.Instance
	if err := json.Unmarshal(raw, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (m *Memory) Put(_ context.Context, inst *workflow.Instance) error {
	raw, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	m.lru.Add(inst.ID, raw)
	metrics.FormInstances.Set(float64(m.lru.Len()))
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.lru.Remove(id)
	metrics.FormInstances.Set(float64(m.lru.Len()))
	return nil
}

// Lock admits one holder per id until release is called.
func (m *Memory) Lock(_ context.Context, id string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locked[id]; held {
		return nil, workflow.ErrBusy
	}
	m.locked[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.locked, id)
			m.mu.Unlock()
		})
	}, nil
}
