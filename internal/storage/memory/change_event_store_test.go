package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-score/internal/domain"
	"wallet-score/internal/storage"
)

func newEvent(id string, account domain.Account, oldScore, newScore int, at time.Time) *domain.ChangeEvent {
	return &domain.ChangeEvent{
		ID:        id,
		Account:   account,
		OldScore:  oldScore,
		NewScore:  newScore,
		Delta:     newScore - oldScore,
		Timestamp: at,
	}
}

func TestChangeEventStore_InsertAndGetByAccount(t *testing.T) {
	store := NewChangeEventStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	events := []*domain.ChangeEvent{
		newEvent("e2", testAccount, 60, 70, base.Add(time.Hour)),
		newEvent("e1", testAccount, 50, 60, base),
		newEvent("e3", "other", 10, 30, base),
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByAccount(ctx, testAccount)
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].ID != "e1" || got[1].ID != "e2" {
		t.Errorf("expected timestamp order e1, e2; got %s, %s", got[0].ID, got[1].ID)
	}
}

func TestChangeEventStore_DuplicateKey(t *testing.T) {
	store := NewChangeEventStore()
	ctx := context.Background()
	e := newEvent("e1", testAccount, 50, 60, time.Now())

	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, e); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestChangeEventStore_GetByTimeRange(t *testing.T) {
	store := NewChangeEventStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		e := newEvent(string(rune('a'+i)), testAccount, 50, 60, base.Add(time.Duration(i)*time.Hour))
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	// Inclusive on both ends
	got, err := store.GetByTimeRange(ctx, base.Add(time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].ID != "b" || got[2].ID != "d" {
		t.Errorf("unexpected range: %s..%s", got[0].ID, got[2].ID)
	}
}

func TestChangeEventStore_InvalidInput(t *testing.T) {
	store := NewChangeEventStore()

	err := store.Insert(context.Background(), &domain.ChangeEvent{Account: testAccount})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
