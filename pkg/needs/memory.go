package needs

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory, for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[uuid.UUID][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mappings: make(map[uuid.UUID][]string)}
}

func (s *MemoryStore) Save(_ context.Context, messageID uuid.UUID, needTypes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mappings[messageID] = append([]string(nil), needTypes...)

	return nil
}

func (s *MemoryStore) Find(_ context.Context, messageID uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mapping, ok := s.mappings[messageID]
	if !ok {
		return nil, nil
	}

	return append([]string(nil), mapping...), nil
}
