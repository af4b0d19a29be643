package clickhouse

import (
	"context"
	"fmt"
	"time"

	"wallet-score/internal/domain"
	"wallet-score/internal/storage"
)

// ChangeEventStore implements storage.ChangeEventStore using ClickHouse.
type ChangeEventStore struct {
	conn *Conn
}

// NewChangeEventStore creates a new ChangeEventStore.
func NewChangeEventStore(conn *Conn) *ChangeEventStore {
	return &ChangeEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ChangeEventStore = (*ChangeEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if the event ID exists.
// MergeTree does not enforce uniqueness, so the key is checked first.
func (s *ChangeEventStore) Insert(ctx context.Context, e *domain.ChangeEvent) (err error) {
	if e == nil || e.ID == "" || e.Account == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_change_event", start, err) }()

	exists, err := s.exists(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO change_events (id, account, old_score, new_score, delta, ts)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.ID,
		e.Account.String(),
		uint8(e.OldScore),
		uint8(e.NewScore),
		int16(e.Delta),
		e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByAccount retrieves all events for an account, ordered by timestamp ASC.
func (s *ChangeEventStore) GetByAccount(ctx context.Context, account domain.Account) (_ []*domain.ChangeEvent, err error) {
	start := time.Now()
	defer func() { observe("get_change_events_by_account", start, err) }()

	query := `
		SELECT id, account, old_score, new_score, delta, ts
		FROM change_events
		WHERE account = ?
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.conn.Query(ctx, query, account.String())
	if err != nil {
		return nil, fmt.Errorf("query by account: %w", err)
	}
	defer rows.Close()

	return scanChangeEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] (inclusive), ordered by timestamp ASC.
func (s *ChangeEventStore) GetByTimeRange(ctx context.Context, from, to time.Time) (_ []*domain.ChangeEvent, err error) {
	start := time.Now()
	defer func() { observe("get_change_events_by_time_range", start, err) }()

	query := `
		SELECT id, account, old_score, new_score, delta, ts
		FROM change_events
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.conn.Query(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanChangeEvents(rows)
}

// exists checks if an event with the given ID exists.
func (s *ChangeEventStore) exists(ctx context.Context, id string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM change_events WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanChangeEvents scans multiple rows into a slice.
func scanChangeEvents(rows chRows) ([]*domain.ChangeEvent, error) {
	var events []*domain.ChangeEvent

	for rows.Next() {
		var (
			e        domain.ChangeEvent
			account  string
			oldScore uint8
			newScore uint8
			delta    int16
		)
		if err := rows.Scan(&e.ID, &account, &oldScore, &newScore, &delta, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan change event: %w", err)
		}
		e.Account = domain.Account(account)
		e.OldScore = int(oldScore)
		e.NewScore = int(newScore)
		e.Delta = int(delta)
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change events: %w", err)
	}
	return events, nil
}
