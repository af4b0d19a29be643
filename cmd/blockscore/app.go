package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wallet-score/internal/cache"
	"wallet-score/internal/config"
	"wallet-score/internal/engine"
	"wallet-score/internal/ledger"
	"wallet-score/internal/notify"
	"wallet-score/internal/sns"
	"wallet-score/internal/solana"
	"wallet-score/internal/storage"
	chstore "wallet-score/internal/storage/clickhouse"
	"wallet-score/internal/storage/memory"
	pgstore "wallet-score/internal/storage/postgres"
	"wallet-score/internal/watchlist"
)

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// stores holds the export stores.
type stores struct {
	records storage.ScoreRecordStore
	changes storage.ChangeEventStore
}

// createStores connects the configured backends. A backend without a DSN
// falls back to memory.
func createStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, func(), error) {
	s := &stores{
		records: memory.NewScoreRecordStore(),
		changes: memory.NewChangeEventStore(),
	}
	if cfg.UseMemory {
		return s, func() {}, nil
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.WithMaxConns(int32(cfg.PostgresMaxConns)))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		s.records = pgstore.NewScoreRecordStore(pool)
		logger.Info("score records stored in postgres")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		s.changes = chstore.NewChangeEventStore(conn)
		logger.Info("change events stored in clickhouse")
	}

	return s, cleanup, nil
}

// app is the wired set of components.
type app struct {
	cache     *cache.ScoreCache
	scorer    *engine.Scorer
	watchlist *watchlist.Watchlist
	hub       *notify.Hub
	cleanup   func()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	rpcOpts := []solana.ClientOption{solana.WithMaxRetries(cfg.RPCMaxRetries)}
	if cfg.RPCRateLimit > 0 {
		rpcOpts = append(rpcOpts, solana.WithRateLimit(cfg.RPCRateLimit, int(cfg.RPCRateLimit)+1))
	}
	rpc := solana.NewHTTPClient(cfg.RPCURL, rpcOpts...)

	gw := ledger.NewGateway(rpc, ledger.Config{
		QueryTimeout:       cfg.QueryTimeout,
		SignatureLimit:     cfg.SignatureLimit,
		ProtocolSampleSize: cfg.ProtocolSampleSize,
	}, logger.Named("ledger"))

	scoreCache := cache.New(cfg.CacheTTL, cache.WithLogger(logger.Named("cache")))
	resolver := sns.NewHTTPResolver(cfg.SNSURL, &http.Client{Timeout: sns.DefaultTimeout}, logger.Named("sns"))

	scorer := engine.NewScorer(gw, scoreCache, engine.Config{BatchTimeout: cfg.BatchTimeout}, logger.Named("engine"),
		engine.WithResolver(resolver),
		engine.WithRecordStore(st.records),
	)

	hub := notify.NewHub(nil, logger.Named("notify"))
	wl := watchlist.New(scorer, logger.Named("watchlist"),
		watchlist.WithSink(st.changes),
		watchlist.WithNotifier(hub),
	)

	return &app{
		cache:     scoreCache,
		scorer:    scorer,
		watchlist: wl,
		hub:       hub,
		cleanup: func() {
			hub.Close()
			cleanup()
		},
	}, nil
}
