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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/livebadge/internal/adapter/driven/postgres"
	"github.com/ericfisherdev/livebadge/internal/adapter/driven/postgrest"
	redisadapter "github.com/ericfisherdev/livebadge/internal/adapter/driven/redis"
	"github.com/ericfisherdev/livebadge/internal/adapter/driven/secret"
	sqliteadapter "github.com/ericfisherdev/livebadge/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/livebadge/internal/adapter/driving/http"
	"github.com/ericfisherdev/livebadge/internal/application"
	"github.com/ericfisherdev/livebadge/internal/config"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"public_base_url", cfg.PublicBaseURL,
		"store", cfg.Store,
		"probe_timeout", cfg.ProbeTimeout,
		"credential_encryption", cfg.SecretKey != nil,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the metric store and run its migrations.
	box, err := secret.NewBox(cfg.SecretKey)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, box)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	// 4. Wire services.
	client := postgrest.NewClient(cfg.ProbeTimeout)

	handler := httphandler.NewHandler(
		application.NewResolveService(store, client),
		application.NewRefreshService(store, client),
		application.NewSetupService(store, client),
		application.NewDiscoveryService(client),
		store,
		cfg.PublicBaseURL,
		logger,
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2*cfg.ProbeTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// 5. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 6. Graceful shutdown with 10s timeout to drain in-flight probes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// openStore connects the configured backend and returns it with its closer.
func openStore(ctx context.Context, cfg *config.Config, box *secret.Box) (driven.MetricStore, func() error, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("postgres store ready")
		return postgres.NewMetricRepo(pool, box), func() error { pool.Close(); return nil }, nil

	case config.StoreRedis:
		rdb, err := redisadapter.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("redis store ready", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return redisadapter.NewMetricRepo(rdb, box), rdb.Close, nil

	case config.StoreSQLite:
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		slog.Info("sqlite store ready", "path", cfg.DBPath)
		return sqliteadapter.NewMetricRepo(db, box), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store %q", cfg.Store)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
