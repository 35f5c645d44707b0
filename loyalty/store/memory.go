// Package store provides loyalty.Store implementations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/ecorewards/loyalty-engine/loyalty"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.Mutex
	users   map[loyalty.UserID]*loyalty.User
	entries map[loyalty.UserID][]loyalty.Entry
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[loyalty.UserID]*loyalty.User),
		entries: make(map[loyalty.UserID][]loyalty.Entry),
	}
}

// PutUser inserts or replaces a user record. Test/dev helper; tier defaults
// to the derived value when unset.
func (m *Memory) PutUser(u loyalty.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.Tier == "" {
		u.Tier = loyalty.TierOf(u.Balance)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = &u
}

// GetUser returns a copy of the user, or ErrUserNotFound.
func (m *Memory) GetUser(_ context.Context, id loyalty.UserID) (*loyalty.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, loyalty.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// ApplyDelta adjusts the balance under the store lock; the check and the
// write are one critical section, so concurrent callers never observe a
// stale balance.
func (m *Memory) ApplyDelta(_ context.Context, id loyalty.UserID, delta int64, floorAtZero bool) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return 0, false, loyalty.ErrUserNotFound
	}
	if floorAtZero && u.Balance+delta < 0 {
		return u.Balance, false, nil
	}
	u.Balance += delta
	return u.Balance, true, nil
}

func (m *Memory) SetTier(_ context.Context, id loyalty.UserID, tier loyalty.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return loyalty.ErrUserNotFound
	}
	u.Tier = tier
	return nil
}

// AppendEntry adds a ledger entry. Append-only.
func (m *Memory) AppendEntry(_ context.Context, entry loyalty.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[entry.UserID] = append(m.entries[entry.UserID], entry)
	return nil
}

// ListEntries returns entries newest first.
func (m *Memory) ListEntries(_ context.Context, id loyalty.UserID, limit int) ([]loyalty.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.entries[id]
	out := make([]loyalty.Entry, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ loyalty.Store = (*Memory)(nil)
