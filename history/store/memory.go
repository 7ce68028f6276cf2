// Package store provides in-process history.Repository implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/calendar-engine/history"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	records     []history.Record // ordered by CreatedAt
	idempotency map[string]bool
	profiles    map[string]history.Profile
}

func NewMemory() *Memory {
	return &Memory{
		idempotency: make(map[string]bool),
		profiles:    make(map[string]history.Profile),
	}
}

// Append adds a record. Append-only.
func (m *Memory) Append(_ context.Context, r history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.IdempotencyKey != "" && m.idempotency[r.IdempotencyKey] {
		return history.ErrDuplicateIdempotencyKey
	}

	i := sort.Search(len(m.records), func(i int) bool {
		return m.records[i].CreatedAt.After(r.CreatedAt)
	})
	m.records = append(m.records, history.Record{})
	copy(m.records[i+1:], m.records[i:])
	m.records[i] = r

	if r.IdempotencyKey != "" {
		m.idempotency[r.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) List(_ context.Context, f history.Filter) ([]history.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []history.Record
	for i := len(m.records) - 1; i >= 0; i-- {
		if !f.Matches(m.records[i]) {
			continue
		}
		result = append(result, m.records[i])
		if f.Limit > 0 && len(result) == f.Limit {
			break
		}
	}
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// Prune drops records older than cutoff. Their idempotency keys stay
// reserved, matching the SQLite store.
func (m *Memory) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := sort.Search(len(m.records), func(i int) bool {
		return !m.records[i].CreatedAt.Before(cutoff)
	})
	m.records = append([]history.Record(nil), m.records[i:]...)
	return int64(i), nil
}

// =============================================================================
// PROFILES
// =============================================================================

func (m *Memory) SaveProfile(_ context.Context, p history.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Name] = p
	return nil
}

func (m *Memory) GetProfile(_ context.Context, name string) (history.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[name]
	if !ok {
		return history.Profile{}, history.ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListProfiles(_ context.Context) ([]history.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]history.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) DeleteProfile(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[name]; !ok {
		return history.ErrNotFound
	}
	delete(m.profiles, name)
	return nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.idempotency = make(map[string]bool)
	m.profiles = make(map[string]history.Profile)
	return nil
}
