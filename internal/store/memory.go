package store

import (
	"context"
	"sync"

	"github.com/YushiOMOTE/buddy/internal/model"
)

type memoryStore struct {
	mu   sync.Mutex
	logs map[string]model.ConversationLog
}

// NewMemoryStore returns a process-local ConversationStore.
func NewMemoryStore() ConversationStore {
	return &memoryStore{logs: make(map[string]model.ConversationLog)}
}

func (s *memoryStore) Get(ctx context.Context, id string) (*model.ConversationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.logs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &model.ConversationLog{
		ID:      stored.ID,
		Turns:   stored.Snapshot(),
		Version: stored.Version,
	}, nil
}

func (s *memoryStore) Put(ctx context.Context, log *model.ConversationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.logs[log.ID].Version != log.Version {
		return ErrConflict
	}

	next := log.Version + 1
	s.logs[log.ID] = model.ConversationLog{
		ID:      log.ID,
		Turns:   log.Snapshot(),
		Version: next,
	}
	log.Version = next
	return nil
}
