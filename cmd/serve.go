package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	_ "REFERRAL_AUTH_BACK-END/docs" // This is required for swagger
	"REFERRAL_AUTH_BACK-END/internal/auth"
	"REFERRAL_AUTH_BACK-END/internal/config"
	"REFERRAL_AUTH_BACK-END/internal/handlers"
	"REFERRAL_AUTH_BACK-END/internal/logging"
	"REFERRAL_AUTH_BACK-END/internal/mailer"
	"REFERRAL_AUTH_BACK-END/internal/metrics"
	"REFERRAL_AUTH_BACK-END/internal/middleware"
	"REFERRAL_AUTH_BACK-END/internal/routes"
	"REFERRAL_AUTH_BACK-END/internal/services"
	"REFERRAL_AUTH_BACK-END/internal/store"
)

const serviceName = "referral-auth"

// database is what the server needs from the pool; *pgxpool.Pool satisfies it.
type database interface {
	store.DBTX
	handlers.Pinger
}

type serveOptions struct {
	migrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server. The server connects to PostgreSQL,
optionally applies pending migrations, and shuts down gracefully on
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.migrate {
		if err := migrateUp(cfg.GetDSN()); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	pool, err := openPool(ctx, &cfg.Database, cfg.GetDSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	m := metrics.New()
	handler := buildHandler(cfg, pool, m, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SERVER_SHUTDOWN_FAILED").Wrap(err)
	}
	logger.Info("server stopped")
	return nil
}

// openPool connects to PostgreSQL with the simple query protocol, which
// PgBouncer in transaction mode requires, and pings before returning.
func openPool(ctx context.Context, db *config.DatabaseConfig, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	poolCfg.ConnConfig.RuntimeParams["application_name"] = serviceName
	poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = "30000" // 30s
	poolCfg.MaxConns = db.MaxConns
	poolCfg.MinConns = db.MinConns
	poolCfg.MaxConnLifetime = db.MaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, db.ConnTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

// buildHandler wires the services and returns the full middleware chain:
// CORS, then request id and access log, then metrics around the mux.
func buildHandler(cfg *config.Config, db database, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	users := store.NewPostgresUserRepository(db)
	hasher := auth.NewBcryptHasher(auth.DefaultHashCost)
	issuer := auth.NewTokenIssuer(&cfg.JWT)

	var mail mailer.Mailer
	if cfg.IsEmailConfigured() {
		mail = mailer.NewSMTPMailer(&cfg.Email)
	} else {
		mail = mailer.NewLogMailer(logger)
	}

	authSvc := services.NewAuthService(users, hasher, issuer, cfg.Referral.SignupURL, m, logger)
	resetSvc := services.NewPasswordResetService(users, hasher, mail, &cfg.Reset, m, logger)
	referralSvc := services.NewReferralService(users)

	mux := routes.SetupRoutes(routes.Handlers{
		Auth:      handlers.NewAuthHandler(authSvc, logger),
		Reset:     handlers.NewPasswordResetHandler(resetSvc, logger),
		Referrals: handlers.NewReferralHandler(referralSvc, logger),
		Health:    handlers.NewHealthHandler(db, logger),
		Verifier:  issuer,
		Metrics:   m,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: cfg.CORS.AllowCredentials,
	})

	return c.Handler(middleware.RequestID(logger)(middleware.Metrics(m)(mux)))
}
