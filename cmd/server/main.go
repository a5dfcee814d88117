package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/api"
	"github.com/Harshitk-cp/orgbrain/internal/config"
	"github.com/Harshitk-cp/orgbrain/internal/service"
	"github.com/Harshitk-cp/orgbrain/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "orgbrain",
		Short:         "Organizational reasoning assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newChatCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func newLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(config.LogLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	return cfg.Build()
}

// bootstrap loads configuration and builds the reasoning service. The returned
// cleanup closes the database pool when one was opened.
func bootstrap(ctx context.Context) (*service.ReasoningService, *zap.Logger, func(), error) {
	if err := config.Load(); err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() { _ = logger.Sync() }

	var pool *pgxpool.Pool
	if dbURL := config.DatabaseURL(); dbURL != "" {
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("ping database: %w", err)
		}
		logger.Info("connected to database")

		applied, err := store.Migrate(ctx, pool, config.MigrationsPath())
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", zap.Int("count", applied))

		cleanup = func() {
			pool.Close()
			_ = logger.Sync()
		}
	}

	svc, err := api.NewService(ctx, pool, logger)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return svc, logger, cleanup, nil
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	svc, logger, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	app := api.NewApp(svc, api.Options{
		APIKey:          config.APIKey(),
		CORSOrigins:     config.CORSOrigins(),
		RateLimitRPS:    config.RateLimitRPS(),
		RateLimitBurst:  config.RateLimitBurst(),
		StreamKeepAlive: config.StreamKeepAlive(),
	}, logger)

	// Start background services
	app.Sweeper.Start()

	addr := config.ServerAddr()
	// No WriteTimeout: the stream endpoints hold connections open.
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
	case err := <-serveErr:
		app.Sweeper.Stop()
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("shutting down server")

	app.Sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
