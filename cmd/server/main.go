package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex-pos/api/internal/config"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/events"
	"github.com/apex-pos/api/internal/guard"
	"github.com/apex-pos/api/internal/logger"
	"github.com/apex-pos/api/internal/metrics"
	"github.com/apex-pos/api/internal/router"
	"github.com/apex-pos/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	queries := database.New(pool)

	m := metrics.New()

	hub := ws.NewHub()
	go hub.Run(ctx)

	publishers := events.Fanout{hub}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer amqpPub.Close() //nolint:errcheck
		publishers = append(publishers, amqpPub)
		log.Info("publishing events to amqp", zap.String("exchange", cfg.AMQPExchange))
	}

	var g guard.Guard
	switch cfg.DuplicateGuard {
	case "postgres":
		g = guard.NewPostgres(queries, time.Now)
	case "memory":
		g = guard.NewMemory(time.Now)
	default:
		return fmt.Errorf("unknown DUPLICATE_GUARD %q (want memory or postgres)", cfg.DuplicateGuard)
	}
	log.Info("duplicate guard selected", zap.String("guard", cfg.DuplicateGuard))

	r := router.New(cfg, router.Deps{
		Queries:   queries,
		Pool:      pool,
		Hub:       hub,
		Publisher: publishers,
		Guard:     g,
		Metrics:   m,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
