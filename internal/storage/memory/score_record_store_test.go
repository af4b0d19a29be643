package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wallet-score/internal/domain"
	"wallet-score/internal/storage"
)

const testAccount = domain.Account("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

func newRecord(account domain.Account, score int, at time.Time) *domain.ScoreRecord {
	return &domain.ScoreRecord{
		Account:        account,
		Score:          score,
		Grade:          domain.GradeB,
		AgePoints:      25,
		ActivityPoints: 25,
		ValuePoints:    15,
		DiversityPts:   12,
		BadgeIDs:       []string{"perfect_score", "diamond_hands"},
		ComputedAt:     at,
	}
}

func TestScoreRecordStore_InsertAndGet(t *testing.T) {
	store := NewScoreRecordStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, score := range []int{70, 77, 81} {
		if err := store.Insert(ctx, newRecord(testAccount, score, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := store.Insert(ctx, newRecord("other", 10, base)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByAccount(ctx, testAccount, 0)
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].Score != 81 || got[2].Score != 70 {
		t.Errorf("expected newest first, got %d..%d", got[0].Score, got[2].Score)
	}

	limited, err := store.GetByAccount(ctx, testAccount, 2)
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if len(limited) != 2 || limited[0].Score != 81 {
		t.Errorf("unexpected limited result: %+v", limited)
	}
}

func TestScoreRecordStore_DuplicateKey(t *testing.T) {
	store := NewScoreRecordStore()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := store.Insert(ctx, newRecord(testAccount, 50, at)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, newRecord(testAccount, 60, at))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestScoreRecordStore_InvalidInput(t *testing.T) {
	store := NewScoreRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, newRecord(testAccount, 50, time.Time{})); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero time, got %v", err)
	}
}

func TestScoreRecordStore_CopyIsolation(t *testing.T) {
	store := NewScoreRecordStore()
	ctx := context.Background()

	r := newRecord(testAccount, 50, time.Now())
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	r.BadgeIDs[0] = "mutated"

	got, _ := store.GetByAccount(ctx, testAccount, 1)
	if got[0].BadgeIDs[0] != "perfect_score" {
		t.Errorf("stored record was mutated through caller slice")
	}
}

func TestScoreRecordStore_Concurrent(t *testing.T) {
	store := NewScoreRecordStore()
	ctx := context.Background()
	base := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Insert(ctx, newRecord(testAccount, i, base.Add(time.Duration(i)*time.Second)))
			_, _ = store.GetByAccount(ctx, testAccount, 5)
		}(i)
	}
	wg.Wait()

	got, _ := store.GetByAccount(ctx, testAccount, 0)
	if len(got) != 20 {
		t.Errorf("expected 20 records, got %d", len(got))
	}
}
