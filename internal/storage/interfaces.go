package storage

import (
	"context"
	"time"

	"wallet-score/internal/domain"
)

// ScoreRecordStore provides access to score_records storage.
type ScoreRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if (account, computed_at) exists.
	Insert(ctx context.Context, r *domain.ScoreRecord) error

	// GetByAccount retrieves up to limit records for an account, newest first.
	// A non-positive limit returns every record.
	GetByAccount(ctx context.Context, account domain.Account, limit int) ([]*domain.ScoreRecord, error)
}

// ChangeEventStore provides access to change_events storage.
type ChangeEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if the event ID exists.
	Insert(ctx context.Context, e *domain.ChangeEvent) error

	// GetByAccount retrieves all events for an account, ordered by timestamp ASC.
	GetByAccount(ctx context.Context, account domain.Account) ([]*domain.ChangeEvent, error)

	// GetByTimeRange retrieves events within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.ChangeEvent, error)
}
