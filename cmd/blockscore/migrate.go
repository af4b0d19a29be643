package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wallet-score/internal/storage/migrations"
	pgstore "wallet-score/internal/storage/postgres"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if cfg.PostgresDSN == "" && cfg.ClickhouseDSN == "" {
		return fmt.Errorf("nothing to migrate: set postgres-dsn or clickhouse-dsn")
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.WithMaxConns(int32(cfg.PostgresMaxConns)))
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		applied, err := migrations.RunPostgresMigrations(ctx, pool, logger)
		if err != nil {
			return err
		}
		logger.Info("postgres migrations applied", zap.Strings("files", applied))
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
		if err != nil {
			return err
		}
		conn.Close()
		logger.Info("clickhouse migrations applied")
	}

	return nil
}
