package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-score/internal/domain"
	"wallet-score/internal/storage"
)

const testAccount = domain.Account("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

func TestChangeEventStore(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewChangeEventStore(conn)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	events := []*domain.ChangeEvent{
		{ID: "evt-2", Account: testAccount, OldScore: 60, NewScore: 52, Delta: -8, Timestamp: base.Add(time.Hour)},
		{ID: "evt-1", Account: testAccount, OldScore: 50, NewScore: 60, Delta: 10, Timestamp: base},
		{ID: "evt-3", Account: "other", OldScore: 10, NewScore: 30, Delta: 20, Timestamp: base.Add(3 * time.Hour)},
	}
	for _, e := range events {
		require.NoError(t, store.Insert(ctx, e))
	}

	t.Run("get by account", func(t *testing.T) {
		got, err := store.GetByAccount(ctx, testAccount)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, "evt-1", got[0].ID)
		assert.Equal(t, "evt-2", got[1].ID)
		assert.Equal(t, -8, got[1].Delta)
		assert.True(t, got[0].Timestamp.Equal(base))
	})

	t.Run("get by time range", func(t *testing.T) {
		got, err := store.GetByTimeRange(ctx, base.Add(time.Hour), base.Add(3*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "evt-2", got[0].ID)
		assert.Equal(t, "evt-3", got[1].ID)
	})

	t.Run("duplicate key", func(t *testing.T) {
		err := store.Insert(ctx, events[0])
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("invalid input", func(t *testing.T) {
		err := store.Insert(ctx, &domain.ChangeEvent{Account: testAccount})
		assert.ErrorIs(t, err, storage.ErrInvalidInput)
	})
}
