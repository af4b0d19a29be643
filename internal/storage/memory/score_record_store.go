package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"wallet-score/internal/domain"
	"wallet-score/internal/storage"
)

type scoreRecordKey struct {
	account    domain.Account
	computedAt int64 // UnixNano
}

// ScoreRecordStore is an in-memory implementation of storage.ScoreRecordStore.
type ScoreRecordStore struct {
	mu   sync.RWMutex
	data map[scoreRecordKey]*domain.ScoreRecord
}

// NewScoreRecordStore creates a new in-memory score record store.
func NewScoreRecordStore() *ScoreRecordStore {
	return &ScoreRecordStore{
		data: make(map[scoreRecordKey]*domain.ScoreRecord),
	}
}

// Compile-time interface check.
var _ storage.ScoreRecordStore = (*ScoreRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if (account, computed_at) exists.
func (s *ScoreRecordStore) Insert(_ context.Context, r *domain.ScoreRecord) error {
	if r == nil || r.Account == "" || r.ComputedAt.IsZero() {
		return storage.ErrInvalidInput
	}

	key := scoreRecordKey{account: r.Account, computedAt: r.ComputedAt.UnixNano()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	s.data[key] = copyScoreRecord(r)
	return nil
}

// GetByAccount retrieves up to limit records for an account, newest first.
func (s *ScoreRecordStore) GetByAccount(_ context.Context, account domain.Account, limit int) ([]*domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreRecord
	for key, r := range s.data {
		if key.account == account {
			result = append(result, copyScoreRecord(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ComputedAt.After(result[j].ComputedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyScoreRecord(r *domain.ScoreRecord) *domain.ScoreRecord {
	c := *r
	c.BadgeIDs = append([]string(nil), r.BadgeIDs...)
	c.ComputedAt = r.ComputedAt.In(time.UTC)
	return &c
}
