// Package server wires the identity server together: storage, services, the
// HTTP endpoint, and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vposukhov/stockpilot/internal/logging"
	"github.com/vposukhov/stockpilot/internal/metrics"
	"github.com/vposukhov/stockpilot/internal/server/config"
	"github.com/vposukhov/stockpilot/internal/server/httpapi"
	"github.com/vposukhov/stockpilot/internal/server/migrations"
	"github.com/vposukhov/stockpilot/internal/server/repositories/refreshtokens"
	"github.com/vposukhov/stockpilot/internal/server/repositories/users"
	"github.com/vposukhov/stockpilot/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler http.Handler
	db      *sql.DB
}

// NewApp builds the application. With an empty DSN the in-memory stores are
// used, which suits development and tests; a DSN selects PostgreSQL.
func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	var (
		db          *sql.DB
		userRepo    users.Repository
		refreshRepo refreshtokens.Repository
	)

	if cfg.DatabaseDSN == "" {
		userRepo = users.NewInMemoryRepository()
		refreshRepo = refreshtokens.NewInMemoryRepository()
	} else {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := runMigrations(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
		userRepo = users.NewPostgresRepository(db)
		refreshRepo = refreshtokens.NewPostgresRepository(db)
	}

	userService := services.NewUserService(userRepo, refreshRepo, cfg)
	m := metrics.New()
	handler := httpapi.NewHandler(userService, logger, m)

	return &App{
		config:  cfg,
		logger:  logger,
		handler: httpapi.NewRouter(handler, m, cfg),
		db:      db,
	}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting identity server", "addr", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if app.db != nil {
		return app.db.Close()
	}
	return nil
}
