package migrations

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	chstore "wallet-score/internal/storage/clickhouse"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunClickhouseMigrations creates the change-event database named in dsn
// and applies the embedded schema to it. The returned connection points
// at that database and belongs to the caller.
func RunClickhouseMigrations(ctx context.Context, dsn string, logger *zap.Logger) (*chstore.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse database %s: %w", dbName, err)
	}

	for _, f := range files {
		// The native protocol rejects multi-statement Exec.
		for i, stmt := range f.statements {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s statement %d: %w", f.name, i+1, err)
			}
		}
		logger.Debug("applied clickhouse migration",
			zap.String("database", dbName),
			zap.String("file", f.name),
			zap.Int("statements", len(f.statements)))
	}
	return conn, nil
}

func ensureDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

// databaseFromDSN returns the path component of dsn, which must be a
// plain identifier since it is interpolated into DDL.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn has no database")
	}
	if !identPattern.MatchString(db) {
		return "", fmt.Errorf("clickhouse database %q is not a plain identifier", db)
	}
	return db, nil
}
