// Command gatekeepd runs the reference auth API used by gatekeep.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/naveenspark/gatekeep/internal/config"
	"github.com/naveenspark/gatekeep/internal/logging"
	"github.com/naveenspark/gatekeep/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gatekeepd:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.Server
	if err := config.Load(&cfg); err != nil {
		return err
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: server.New(server.Options{
			Store:         store,
			AllowedOrigin: cfg.FrontendURL,
			Logger:        logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "frontend", cfg.FrontendURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, redisURL string, logger *slog.Logger) (server.Store, func(), error) {
	if redisURL == "" {
		logger.Info("using in-memory store")
		return server.NewMemoryStore(), func() {}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("using redis store", "addr", opts.Addr)
	return server.NewRedisStore(rdb, "", 0), func() { _ = rdb.Close() }, nil
}
