package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/noticeboard/internal/config"
	httpapi "github.com/tbourn/noticeboard/internal/http"
	"github.com/tbourn/noticeboard/internal/idempotency"
	"github.com/tbourn/noticeboard/internal/observability"
	"github.com/tbourn/noticeboard/internal/registry"
	"github.com/tbourn/noticeboard/internal/repo"
	"github.com/tbourn/noticeboard/internal/search"
	"github.com/tbourn/noticeboard/internal/sysutil"
)

type serveOptions struct {
	port      string
	ledgerDSN string
	noLedger  bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Start the notice board HTTP API. Settings come from the environment (optionally seeded from --env-file); flags override them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.port, "port", "", "port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&opts.ledgerDSN, "ledger-dsn", "", "reaction ledger SQLite DSN (overrides LEDGER_DSN)")
	cmd.Flags().BoolVar(&opts.noLedger, "no-ledger", false, "disable the reaction ledger")

	return cmd
}

// loadConfig seeds the environment from the dotenv file, reads config and
// applies flag overrides.
func loadConfig(opts serveOptions) (config.Config, error) {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return config.Config{}, fmt.Errorf("loading %s: %w", flagEnvFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	cfg.Port = sysutil.FirstNonEmpty(opts.port, cfg.Port)
	cfg.LedgerDSN = sysutil.FirstNonEmpty(opts.ledgerDSN, cfg.LedgerDSN)
	if opts.noLedger {
		cfg.LedgerEnabled = false
	}
	return cfg, nil
}

// app is the assembled server: router plus the long-lived objects it needs.
type app struct {
	engine *gin.Engine
	guard  *idempotency.Guard
	db     *gorm.DB
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func buildApp(cfg config.Config) (*app, error) {
	a := &app{
		guard: idempotency.New(idempotency.Options{
			TTL:           cfg.Idempotency.TTL,
			SweepInterval: cfg.Idempotency.SweepInterval,
			SweepBatch:    cfg.Idempotency.SweepBatch,
		}),
	}

	if cfg.LedgerEnabled {
		db, err := repo.OpenSQLite(cfg.LedgerDSN)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			a.db = db
			_ = a.close()
			return nil, fmt.Errorf("migrate ledger: %w", err)
		}
		a.db = db
	}

	gin.SetMode(cfg.GinMode)
	a.engine = gin.New()
	httpapi.RegisterRoutes(a.engine, httpapi.Deps{
		Registry: registry.New(),
		Index:    search.New(),
		Guard:    a.guard,
		LedgerDB: a.db,
	}, cfg)
	return a, nil
}

func runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, cmd.ErrOrStderr())
	ctx = logger.WithContext(ctx)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Warn().Err(err).Msg("closing ledger")
		}
	}()

	go a.guard.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}

	logger.Info().
		Str("addr", ln.Addr().String()).
		Str("version", Version).
		Bool("ledger", cfg.LedgerEnabled).
		Str("base_path", cfg.APIBasePath).
		Msg("noticeboard listening")

	return serve(ctx, srv, ln, cfg)
}

// serve runs srv on ln until ctx is done, then drains in-flight requests
// within cfg.ShutdownTimeout.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, cfg config.Config) error {
	logger := zerolog.Ctx(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
