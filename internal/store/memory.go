package store

import (
	"context"
	"sync"

	"github.com/ayush/pdf-chat/backend/internal/models"
)

// MemoryUsageStore is a process-local usage store for single-node setups
// and tests.
type MemoryUsageStore struct {
	mu   sync.Mutex
	data map[string]models.UsageCounters
}

func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{data: map[string]models.UsageCounters{}}
}

func (s *MemoryUsageStore) Get(_ context.Context, userID string) (models.UsageCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := models.UsageCounters{}
	for k, v := range s.data[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryUsageStore) Increment(_ context.Context, userID string, dim models.LimitDimension, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := s.countersLocked(userID)
	counters[dim] += delta
	return counters[dim], nil
}

func (s *MemoryUsageStore) Set(_ context.Context, userID string, dim models.LimitDimension, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.countersLocked(userID)[dim] = value
	return nil
}

func (s *MemoryUsageStore) countersLocked(userID string) models.UsageCounters {
	counters, ok := s.data[userID]
	if !ok {
		counters = models.UsageCounters{}
		s.data[userID] = counters
	}
	return counters
}
