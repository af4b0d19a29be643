package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wallet-score/internal/api"
)

const shutdownTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.cleanup()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(a.scorer, a.watchlist, a.hub, cfg.AdminKey, logger.Named("api")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.AdminKey == "" {
		logger.Warn("admin key not set, administrative endpoints are disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.cache.Run(gctx, cfg.CacheSweepInterval)
		return nil
	})

	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("rpc", cfg.RPCURL),
			zap.Duration("cache_ttl", cfg.CacheTTL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
