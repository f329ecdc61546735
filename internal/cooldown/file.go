package cooldown

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// FileStore persists entries as one JSON document so cooldowns carry
// across CLI invocations. Writes go through a temp file and rename.
type FileStore struct {
	path    string
	entries map[string]models.CooldownEntry
	mu      sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		entries: make(map[string]models.CooldownEntry),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read cooldown state: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("failed to parse cooldown state %s: %w", path, err)
	}

	return s, nil
}

func (s *FileStore) Last(_ context.Context, groupID string) (*models.CooldownEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[groupID]
	if !ok {
		return nil, nil
	}
	entryCopy := entry
	return &entryCopy, nil
}

func (s *FileStore) Record(_ context.Context, entry models.CooldownEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.GroupID] = entry
	return s.persist()
}

func (s *FileStore) Reset(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, groupID)
	return s.persist()
}

func (s *FileStore) Close() error {
	return nil
}

// persist is called with the mutex held.
func (s *FileStore) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cooldown state directory: %w", err)
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cooldown state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cooldown state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace cooldown state: %w", err)
	}
	return nil
}
