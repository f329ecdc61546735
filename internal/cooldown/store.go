package cooldown

import (
	"context"
	"sync"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// Store owns cooldown history on behalf of the flows. The evaluator only
// reads entries handed to it per call; recording after a confirmed apply
// is the caller's job, one atomic update per group id.
type Store interface {
	// Last returns the most recent entry for a group, or nil when none
	// is recorded.
	Last(ctx context.Context, groupID string) (*models.CooldownEntry, error)
	Record(ctx context.Context, entry models.CooldownEntry) error
	Reset(ctx context.Context, groupID string) error
	Close() error
}

// MemoryStore keeps entries for the lifetime of one process. The daemon
// uses it when no database is configured; tests use it everywhere.
type MemoryStore struct {
	entries map[string]models.CooldownEntry
	mu      sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.CooldownEntry)}
}

func (s *MemoryStore) Last(_ context.Context, groupID string) (*models.CooldownEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[groupID]
	if !ok {
		return nil, nil
	}
	entryCopy := entry
	return &entryCopy, nil
}

func (s *MemoryStore) Record(_ context.Context, entry models.CooldownEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.GroupID] = entry
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, groupID)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
