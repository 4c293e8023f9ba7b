package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	liftcheckhttp "github.com/dukerupert/liftcheck/http"
	"github.com/dukerupert/liftcheck/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the daemon from its environment and serves until ctx is
// cancelled. IO, args and env are parameters so it can be driven from tests.
func run(
	ctx context.Context,
	stdout, stderr io.Writer,
	args []string,
	getenv func(string) string,
) error {
	getenv, err := withDotEnv(getenv, envString(getenv, "ENV_FILE", ".env"))
	if err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}
	cfg, err := LoadConfig(getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(stderr, cfg)
	slog.SetDefault(logger)
	logger.Debug("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("level", cfg.LogLevel),
		slog.String("templates", cfg.TemplateProvider),
		slog.String("storage", cfg.StorageProvider),
		slog.String("email", cfg.EmailProvider))

	pool, err := newDatabasePool(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()

	logger.Info("running database migrations...")
	if err := postgres.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	var (
		registerer prometheus.Registerer
		gatherer   prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		registerer, gatherer = prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	}

	services, err := initServices(ctx, pool, cfg, logger, registerer)
	if err != nil {
		return fmt.Errorf("initializing services: %w", err)
	}

	serverCfg := liftcheckhttp.Config{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Logger:            logger,
		Engine:            services.Engine,
		Templates:         services.Templates,
		Ready:             pool.Ping,
		MetricsRegisterer: registerer,
		MetricsGatherer:   gatherer,
		UploadRateLimit: liftcheckhttp.RateLimitConfig{
			Rate:  cfg.UploadRate,
			Burst: cfg.UploadBurst,
		},
	}
	if cfg.StorageProvider == "local" {
		serverCfg.UploadsDir = cfg.StorageLocalPath
	}

	return serve(ctx, liftcheckhttp.NewServer(serverCfg), logger)
}

// serve starts server and blocks until ctx is done, then drains in-flight
// requests for up to shutdownTimeout.
func serve(ctx context.Context, server *liftcheckhttp.Server, logger *slog.Logger) error {
	if err := server.Open(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Close(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server exited gracefully")
	return nil
}

// newLogger returns a text logger in development and a JSON logger with
// RFC3339Nano timestamps in production. Unknown levels fall back to info.
func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if !cfg.IsProduction() {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339Nano))
		}
		return a
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newDatabasePool opens and pings a pgxpool sized from cfg.
func newDatabasePool(ctx context.Context, cfg *Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MinConns = int32(min(cfg.DBMinConns, cfg.DBMaxConns))
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("database connection pool established",
		slog.String("host", cfg.DBHost),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", cfg.DBMaxConns))
	return pool, nil
}
