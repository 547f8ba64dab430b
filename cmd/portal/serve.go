// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/api"
	"github.com/psu-triup/portal/internal/audit"
	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/importer"
	"github.com/psu-triup/portal/internal/metrics"
	"github.com/psu-triup/portal/internal/platform/config"
	"github.com/psu-triup/portal/internal/platform/constants"
	"github.com/psu-triup/portal/internal/platform/middleware"
	"github.com/psu-triup/portal/internal/platform/migration"
	pgstore "github.com/psu-triup/portal/internal/platform/postgres"
	redisstore "github.com/psu-triup/portal/internal/platform/redis"
	"github.com/psu-triup/portal/internal/portal"
	"github.com/psu-triup/portal/internal/session"
)

// startupTimeout bounds every connection made before the server listens.
const startupTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal HTTP server",
		Long: `Start the portal HTTP server.

Startup sequence:
  1. Load configuration from environment variables.
  2. Connect to Redis (sessions, import status).
  3. Connect to PostgreSQL and migrate, when DATABASE_URL is set (access audit).
  4. Wire the backend client, access gate and portal pages.
  5. Serve until SIGINT or SIGTERM, then drain.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from SERVER_PORT)")

	return cmd
}

func runServe(parent context.Context, port string) error {

	// ── 1. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.ServerPort = port
	}

	log := newLogger(cfg.Debug)
	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("audit", cfg.AuditEnabled()),
	)

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, os.Interrupt)
	defer stop()

	startupCtx, startupCancel := context.WithTimeout(ctx, startupTimeout)
	defer startupCancel()

	// ── 2. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 3. Metrics ────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// ── 4. Access Audit (optional) ────────────────────────────────────────
	hooks := access.Hooks{Observer: collector}

	var (
		pool     *pgxpool.Pool
		recorder *audit.Recorder
		auditLog portal.AuditLog
	)
	if cfg.AuditEnabled() {
		pool, err = pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		store := audit.NewPostgresStore(pool)
		recorder = audit.NewRecorder(store, audit.DefaultCapacity, collector, log)
		hooks.Audit = recorder
		auditLog = store
	}

	// ── 5. Domain Wiring ──────────────────────────────────────────────────
	client, err := backend.NewClient(cfg.BackendURL, &http.Client{Timeout: cfg.BackendTimeout}, log, collector)
	if err != nil {
		return err
	}

	gate := access.NewGate(client, cfg.IdentityTimeout, hooks, access.AdminArea(), access.PSUArea())

	sessions := session.NewProvider(session.NewRedisStore(rdb), cfg.SessionSecret, cfg.SecureCookies, nil)
	sessions.OnInvalidate(func(_ context.Context, _ *session.Session, reason session.Reason) {
		collector.RecordSessionInvalidated(string(reason))
	})

	imports := importer.NewService(client, importer.NewRedisStatusStore(rdb), collector, log)

	pages, err := portal.NewHandler(portal.Options{
		Backend:         client,
		Gate:            gate,
		Sessions:        sessions,
		Imports:         imports,
		Audit:           auditLog,
		LoginLimiter:    middleware.NewRateLimiter(ctx, constants.LoginRateLimitRPS, constants.LoginRateLimitBurst),
		LogoutHosts:     cfg.LogoutHosts,
		IdentityTimeout: cfg.IdentityTimeout,
		SecureCookies:   cfg.SecureCookies,
	})
	if err != nil {
		return err
	}

	// ── 6. Health ─────────────────────────────────────────────────────────
	health := api.HealthDependencies{
		CheckCache: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}
	if pool != nil {
		health.CheckDatabase = func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }
	}
	liveness, readiness := api.NewHealthHandlers(health, log)

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(ctx, api.Settings{Port: cfg.ServerPort, CORS: cfg, Proxies: proxies}, log, gate, sessions, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Portal:    pages,
	})

	// ── 8. Run Until Signalled ────────────────────────────────────────────
	group, groupCtx := errgroup.WithContext(ctx)

	if recorder != nil {
		group.Go(func() error { return recorder.Run(groupCtx) })
	}

	if cfg.ImportSchedule != "" {
		scheduler, err := importer.NewScheduler(groupCtx, cfg.ImportSchedule, imports, log)
		if err != nil {
			return err
		}
		scheduler.Start()
		group.Go(func() error {
			<-groupCtx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			scheduler.Stop(stopCtx)
			return nil
		})
	}

	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))
		return server.Shutdown(constants.ShutdownTimeout)
	})

	if err := group.Wait(); err != nil {
		log.Error("server_stopped_with_error", slog.Any("error", err))
		return err
	}

	log.Info("server_stopped_cleanly")
	return nil
}
