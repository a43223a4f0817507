package cmd

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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pamarcar/stays/internal/api"
	"github.com/pamarcar/stays/internal/api/handlers"
	"github.com/pamarcar/stays/internal/audit"
	"github.com/pamarcar/stays/internal/auth"
	"github.com/pamarcar/stays/internal/config"
	"github.com/pamarcar/stays/internal/domain/accounts"
	"github.com/pamarcar/stays/internal/domain/apartments"
	"github.com/pamarcar/stays/internal/domain/bookings"
	"github.com/pamarcar/stays/internal/domain/platforms"
	"github.com/pamarcar/stays/internal/domain/registries"
	"github.com/pamarcar/stays/internal/email"
	"github.com/pamarcar/stays/internal/jobs"
	"github.com/pamarcar/stays/internal/metrics"
	"github.com/pamarcar/stays/internal/storage/postgres"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Stays HTTP server",
	Long: `Start the Stays HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables
- Bootstrap an admin account if ADMIN_* env vars are set
- Start the job workers for registry notifications
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  stays serve

  # Start on a specific host and port
  stays serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  stays serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Msg("starting stays server")

	metrics.Init(Version, GitCommit, BuildDate)

	// Signing key: configured secret, or a fresh random key. With a
	// generated key every outstanding token dies on restart.
	key := []byte(cfg.Auth.TokenSecret)
	if len(key) == 0 {
		key, err = auth.GenerateKey()
		if err != nil {
			return fmt.Errorf("generate signing key: %w", err)
		}
		logger.Warn().Msg("TOKEN_SECRET not set, generated ephemeral signing key; tokens will not survive a restart")
	}

	hierarchy := auth.DefaultHierarchy()
	codec, err := auth.NewTokenCodec(key, cfg.Auth.TokenExpiry, hierarchy)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.NewPool(poolCtx, cfg.Database)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := bootstrapAdminAccount(bootstrapCtx, pool, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	bootstrapCancel()

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email service: %w", err)
	}

	workers, err := jobs.NewWorkers(pool, mailer, logger)
	if err != nil {
		return fmt.Errorf("job workers: %w", err)
	}
	queue, err := jobs.NewClient(pool, workers, slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err != nil {
		return fmt.Errorf("job queue: %w", err)
	}

	repo, err := postgres.NewRepository(pool, queue)
	if err != nil {
		return fmt.Errorf("repository init: %w", err)
	}

	deps := api.Deps{
		Config:     cfg,
		Logger:     logger,
		Codec:      codec,
		Hierarchy:  hierarchy,
		Audit:      audit.NewLogger(),
		Accounts:   accounts.NewService(repo.Accounts(), codec, logger),
		Apartments: apartments.NewService(repo.Apartments(), logger),
		Platforms:  platforms.NewService(repo.Platforms(), logger),
		Bookings:   bookings.NewService(repo.Bookings(), logger),
		Registries: registries.NewService(repo.Registries(), logger),
		Health:     handlers.NewHealthChecker(pool, Version),
	}

	// Start the job workers before accepting traffic so a first registry
	// arriving right after startup gets its notification delivered.
	riverCtx, riverCancel := context.WithCancel(context.Background())
	defer riverCancel()
	if err := queue.Start(riverCtx); err != nil {
		return fmt.Errorf("job workers failed to start: %w", err)
	}
	logger.Info().Msg("job workers started")
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := queue.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("job workers shutdown error")
		} else {
			logger.Info().Msg("job workers stopped")
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(deps),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	return cfg, nil
}

func bootstrapAdminAccount(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, logger zerolog.Logger) error {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Email == "" || bootstrap.Password == "" {
		logger.Warn().Msg("admin bootstrap env vars not fully set; skipping")
		return nil
	}

	const checkQuery = `SELECT id FROM accounts WHERE lower(email) = lower($1) LIMIT 1`
	var existingID int64
	err := pool.QueryRow(ctx, checkQuery, bootstrap.Email).Scan(&existingID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin account: %w", err)
	}

	hash, err := auth.HashPassword(bootstrap.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	name := bootstrap.Name
	if name == "" {
		name = "Administrator"
	}

	const insertQuery = `
INSERT INTO accounts (email, name, password_hash, roles)
VALUES ($1, $2, $3, $4)`
	if _, err := pool.Exec(ctx, insertQuery, bootstrap.Email, name, hash, []string{auth.RoleAdmin}); err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}

	// Redact email in production to avoid PII leaks
	if cfg.Environment == "production" {
		logger.Info().Msg("bootstrapped admin account")
	} else {
		logger.Info().Str("email", bootstrap.Email).Msg("bootstrapped admin account")
	}
	return nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
