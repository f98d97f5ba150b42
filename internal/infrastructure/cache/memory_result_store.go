package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"pay-router.backend/internal/domain/entities"
)

type memoryEntry struct {
	result    entities.TransactionResult
	expiresAt time.Time
}

type memoryLock struct {
	token string
	until time.Time
}

// MemoryResultStore is the single-process TransactionResultStore used when Redis is not configured.
type MemoryResultStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	results map[string]memoryEntry
	locks   map[string]memoryLock
	now     func() time.Time
}

func NewMemoryResultStore(ttl time.Duration) *MemoryResultStore {
	return &MemoryResultStore{
		ttl:     ttl,
		results: make(map[string]memoryEntry),
		locks:   make(map[string]memoryLock),
		now:     time.Now,
	}
}

func (s *MemoryResultStore) Get(_ context.Context, transactionID string) (*entities.TransactionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.results[transactionID]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && s.now().After(entry.expiresAt) {
		delete(s.results, transactionID)
		return nil, nil
	}
	result := entry.result
	return &result, nil
}

func (s *MemoryResultStore) Save(_ context.Context, result *entities.TransactionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[result.TransactionID] = memoryEntry{result: *result, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryResultStore) Acquire(_ context.Context, transactionID string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if held, ok := s.locks[transactionID]; ok && now.Before(held.until) {
		return "", false, nil
	}
	token := uuid.NewString()
	s.locks[transactionID] = memoryLock{token: token, until: now.Add(ttl)}
	return token, true, nil
}

func (s *MemoryResultStore) Release(_ context.Context, transactionID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.locks[transactionID]; ok && held.token == token {
		delete(s.locks, transactionID)
	}
	return nil
}
