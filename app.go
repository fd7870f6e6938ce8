package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joe-ervin05/rolebase/api"
	"github.com/joe-ervin05/rolebase/config"
	"github.com/joe-ervin05/rolebase/data"
	"github.com/joe-ervin05/rolebase/dialect"
	"github.com/joe-ervin05/rolebase/migrations"
	"github.com/joe-ervin05/rolebase/models"
	"github.com/joe-ervin05/rolebase/seeders"
	"github.com/joe-ervin05/rolebase/tools"
)

const shutdownTimeout = 10 * time.Second

// store is what the commands need from a database handle. *sql.DB and *data.Pool satisfy it.
type store interface {
	data.Executor
	data.Conner
	PingContext(ctx context.Context) error
}

type poolStore struct{ *data.Pool }

func (p poolStore) PingContext(ctx context.Context) error { return p.DB().PingContext(ctx) }

// App holds the process-wide database managers for one command run.
type App struct {
	cfg   config.Config
	d     dialect.Dialect
	conns *data.ConnManager
	pools *data.PoolManager
	logs  io.Closer
}

func newApp(cfg config.Config) (*App, error) {
	d, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	logs := tools.InitLogger(cfg.LogConfig())
	tools.DefaultTranslator = tools.NewTranslator(d).WithLogger(tools.Logger)

	connect := data.NewConnector(d, cfg.ConnConfig())
	return &App{
		cfg:   cfg,
		d:     d,
		conns: data.NewConnManager(connect, tools.Logger),
		pools: data.NewPoolManager(connect, tools.Logger),
		logs:  logs,
	}, nil
}

// store returns the pool when pooling is enabled, otherwise the single connection.
func (a *App) store(ctx context.Context) (store, error) {
	if a.cfg.Pool.Enabled {
		pool, err := a.pools.CreatePool(ctx, a.cfg.PoolOptions())
		if err != nil {
			return nil, err
		}
		return poolStore{pool}, nil
	}
	return a.conns.Connect(ctx)
}

func (a *App) Migrate(ctx context.Context) error {
	s, err := a.store(ctx)
	if err != nil {
		return err
	}
	return migrations.NewMigrator(a.d, s, tools.Logger).Migrate(ctx, migrations.Tables())
}

func (a *App) Seed(ctx context.Context) error {
	s, err := a.store(ctx)
	if err != nil {
		return err
	}
	return seeders.NewSeeder(a.d, s, tools.Logger).Run(ctx, seeders.Defaults())
}

// Truncate empties tables, or every table when none are named.
func (a *App) Truncate(ctx context.Context, tables []string) error {
	s, err := a.store(ctx)
	if err != nil {
		return err
	}
	return data.TruncateAll(ctx, s, a.d, tables)
}

// Bootstrap runs the startup steps enabled in the config: truncate, migrate, then seed.
func (a *App) Bootstrap(ctx context.Context) error {
	steps := []struct {
		name    string
		enabled bool
		run     func(context.Context) error
	}{
		{"truncate", a.cfg.Bootstrap.Truncating, func(ctx context.Context) error { return a.Truncate(ctx, nil) }},
		{"migrate", a.cfg.Bootstrap.Migrating, a.Migrate},
		{"seed", a.cfg.Bootstrap.Seeding, a.Seed},
	}
	for _, step := range steps {
		if !step.enabled {
			continue
		}
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("bootstrap %s: %w", step.name, err)
		}
		tools.Logger.Info("bootstrap step finished", "step", step.name)
	}
	return nil
}

// Handler returns the HTTP handler with middleware applied.
func (a *App) Handler(ctx context.Context) (http.Handler, error) {
	s, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	m, err := models.New(a.d, s, tools.DefaultTranslator)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(tools.PanicRecoveryMiddleware, tools.LoggingMiddleware, tools.TimeoutMiddleware(a.cfg.Server.RequestTimeout))
	api.Register(r, api.NewHandler(m, s.PingContext, a.cfg.Server.MaxBody))
	return r, nil
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	h, err := a.Handler(ctx)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		tools.Logger.Warn("server listening", "addr", srv.Addr, "db", a.d.Kind())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	tools.Logger.Warn("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close ends both managers and the log file.
func (a *App) Close() error {
	return errors.Join(a.conns.End(), a.pools.End(), a.logs.Close())
}
