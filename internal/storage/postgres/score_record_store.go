package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"wallet-score/internal/domain"
	"wallet-score/internal/storage"
)

// ScoreRecordStore implements storage.ScoreRecordStore using PostgreSQL.
type ScoreRecordStore struct {
	pool *Pool
}

// NewScoreRecordStore creates a new ScoreRecordStore.
func NewScoreRecordStore(pool *Pool) *ScoreRecordStore {
	return &ScoreRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScoreRecordStore = (*ScoreRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if (account, computed_at) exists.
func (s *ScoreRecordStore) Insert(ctx context.Context, r *domain.ScoreRecord) (err error) {
	if r == nil || r.Account == "" || r.ComputedAt.IsZero() {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_score_record", start, err) }()

	query := `
		INSERT INTO score_records (
			account, computed_at, score, grade,
			age_points, activity_points, value_points, diversity_points, badge_ids
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	badges := r.BadgeIDs
	if badges == nil {
		badges = []string{}
	}

	_, err = s.pool.Exec(ctx, query,
		r.Account.String(),
		r.ComputedAt.UTC(),
		r.Score,
		r.Grade.String(),
		r.AgePoints,
		r.ActivityPoints,
		r.ValuePoints,
		r.DiversityPts,
		badges,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert score record: %w", err)
	}
	return nil
}

// GetByAccount retrieves up to limit records for an account, newest first.
func (s *ScoreRecordStore) GetByAccount(ctx context.Context, account domain.Account, limit int) (_ []*domain.ScoreRecord, err error) {
	start := time.Now()
	defer func() { observe("get_score_records", start, err) }()

	query := `
		SELECT account, computed_at, score, grade,
			age_points, activity_points, value_points, diversity_points, badge_ids
		FROM score_records
		WHERE account = $1
		ORDER BY computed_at DESC
	`
	args := []interface{}{account.String()}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get score records by account: %w", err)
	}
	defer rows.Close()

	return scanScoreRecords(rows)
}

// scanScoreRecord scans a single row into a ScoreRecord.
func scanScoreRecord(row pgx.Row) (*domain.ScoreRecord, error) {
	var (
		r       domain.ScoreRecord
		account string
		grade   string
	)

	err := row.Scan(
		&account,
		&r.ComputedAt,
		&r.Score,
		&grade,
		&r.AgePoints,
		&r.ActivityPoints,
		&r.ValuePoints,
		&r.DiversityPts,
		&r.BadgeIDs,
	)
	if err != nil {
		return nil, err
	}

	r.Account = domain.Account(account)
	r.Grade = domain.Grade(grade)
	r.ComputedAt = r.ComputedAt.UTC()
	return &r, nil
}

// scanScoreRecords scans multiple rows into a slice.
func scanScoreRecords(rows pgx.Rows) ([]*domain.ScoreRecord, error) {
	var records []*domain.ScoreRecord
	for rows.Next() {
		r, err := scanScoreRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score records: %w", err)
	}
	return records, nil
}
