package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"wallet-score/internal/domain"
	"wallet-score/internal/storage"
)

// ChangeEventStore is an in-memory implementation of storage.ChangeEventStore.
type ChangeEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ChangeEvent // keyed by event ID
}

// NewChangeEventStore creates a new in-memory change event store.
func NewChangeEventStore() *ChangeEventStore {
	return &ChangeEventStore{
		data: make(map[string]*domain.ChangeEvent),
	}
}

// Compile-time interface check.
var _ storage.ChangeEventStore = (*ChangeEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if the event ID exists.
func (s *ChangeEventStore) Insert(_ context.Context, e *domain.ChangeEvent) error {
	if e == nil || e.ID == "" || e.Account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.data[e.ID] = &eventCopy
	return nil
}

// GetByAccount retrieves all events for an account, ordered by timestamp ASC.
func (s *ChangeEventStore) GetByAccount(_ context.Context, account domain.Account) ([]*domain.ChangeEvent, error) {
	return s.filter(func(e *domain.ChangeEvent) bool {
		return e.Account == account
	}), nil
}

// GetByTimeRange retrieves events within [start, end] (inclusive), ordered by timestamp ASC.
func (s *ChangeEventStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.ChangeEvent, error) {
	return s.filter(func(e *domain.ChangeEvent) bool {
		return !e.Timestamp.Before(start) && !e.Timestamp.After(end)
	}), nil
}

func (s *ChangeEventStore) filter(keep func(e *domain.ChangeEvent) bool) []*domain.ChangeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ChangeEvent
	for _, e := range s.data {
		if keep(e) {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID < result[j].ID
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result
}
