package migrations

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wallet-score/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded score archive schema.
// Every file uses IF NOT EXISTS, so reruns are safe.
// Returns the names of the files applied.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(files))
	for _, f := range files {
		if len(f.statements) == 0 {
			continue
		}
		// pgx accepts the whole file as one simple-protocol batch.
		if _, err := pool.Exec(ctx, f.body); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", f.name, err)
		}
		logger.Debug("applied postgres migration", zap.String("file", f.name))
		applied = append(applied, f.name)
	}
	return applied, nil
}
