package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	"tokenvault/internal/config"
	"tokenvault/internal/core"
	"tokenvault/internal/di"
	"tokenvault/internal/logging"
	"tokenvault/internal/maintenance"
	"tokenvault/internal/scheduler"
	"tokenvault/internal/storage"
)

// Application holds all the major components of the service.
type Application struct {
	Config        *config.Config
	Logger        hclog.Logger
	DB            *sql.DB
	Store         *storage.SQLiteStore
	Provider      *di.Provider
	Host          *scheduler.Host
	HTTPServer    *http.Server
	MetricsServer *http.Server
}

// components is filled by the dig container.
type components struct {
	dig.In

	Config   *config.Config
	Logger   hclog.Logger
	DB       *sql.DB
	Store    *storage.SQLiteStore
	Provider *di.Provider
	Host     *scheduler.Host
}

// New creates and initializes a new Application instance.
func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, di.ArgumentNilError{Param: "cfg"}
	}

	// opened is closed again when a later component fails to build.
	var opened *sql.DB
	container := dig.New()
	providers := []interface{}{
		func() *config.Config { return cfg },
		newLogger,
		func(cfg *config.Config) (*sql.DB, error) {
			db, err := newDatabase(cfg)
			opened = db
			return db, err
		},
		newStore,
		newServices,
		newProvider,
		newHost,
	}
	for _, provide := range providers {
		if err := container.Provide(provide); err != nil {
			return nil, fmt.Errorf("registering component: %w", err)
		}
	}

	var app *Application
	err := container.Invoke(func(c components) {
		app = &Application{
			Config:   c.Config,
			Logger:   c.Logger,
			DB:       c.DB,
			Store:    c.Store,
			Provider: c.Provider,
			Host:     c.Host,
		}
	})
	if err != nil {
		if opened != nil {
			opened.Close()
		}
		return nil, fmt.Errorf("building application: %w", dig.RootCause(err))
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	app.MetricsServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	app.HTTPServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return app, nil
}

func newLogger(cfg *config.Config) hclog.Logger {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		JSON:   cfg.LogJSON,
		Output: os.Stderr,
	})
}

// openDatabase is replaced in tests.
var openDatabase = storage.OpenDatabase

func newDatabase(cfg *config.Config) (*sql.DB, error) {
	dbCfg := storage.DefaultConfig()
	dbCfg.Path = cfg.DBPath
	return openDatabase(context.Background(), dbCfg)
}

func newStore(cfg *config.Config, db *sql.DB) (*storage.SQLiteStore, error) {
	return storage.NewSQLiteStore(db, []byte(cfg.EncryptionKey))
}

// newServices registers the managers, the store, the scheduler and, unless
// disabled, the maintenance job.
func newServices(cfg *config.Config, logger hclog.Logger, store *storage.SQLiteStore) (*di.Collection, error) {
	services := di.NewCollection()
	services.Add(di.NewInstance[hclog.Logger](logger))
	services.Add(di.NewInstance[clockwork.Clock](clockwork.NewRealClock()))

	builder, err := core.AddCore(services)
	if err != nil {
		return nil, err
	}
	if err := storage.UseSQLite(builder, store); err != nil {
		return nil, err
	}

	if err := scheduler.AddScheduler(services); err != nil {
		return nil, err
	}
	di.Configure(services, func(o *scheduler.Options) {
		o.Workers = cfg.Scheduler.Workers
		o.QueueSize = cfg.Scheduler.QueueSize
	})

	if cfg.Maintenance.Disabled {
		logger.Info("maintenance job disabled")
		return services, nil
	}
	_, err = maintenance.RegisterWith(builder, func(b *maintenance.Builder) {
		m := cfg.Maintenance
		b.SetMaximumRefireCount(m.MaximumRefireCount).
			SetMinimumTokenLifespan(m.MinimumTokenLifespan.Duration).
			SetMinimumAuthorizationLifespan(m.MinimumAuthorizationLifespan.Duration)
		if m.DisableTokenPruning {
			b.DisableTokenPruning()
		}
		if m.DisableAuthorizationPruning {
			b.DisableAuthorizationPruning()
		}
	})
	if err != nil {
		return nil, err
	}
	return services, nil
}

func newProvider(services *di.Collection) (*di.Provider, error) {
	return services.Build()
}

func newHost(provider *di.Provider) (*scheduler.Host, error) {
	return di.Resolve[*scheduler.Host](provider)
}

// Start begins the application's services.
func (a *Application) Start(ctx context.Context) error {
	a.Logger.Info("starting application services")

	if err := a.Host.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	a.serve("metrics", a.MetricsServer)
	a.serve("http", a.HTTPServer)
	return nil
}

func (a *Application) serve(name string, srv *http.Server) {
	go func() {
		a.Logger.Info("server listening", "server", name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("server stopped", "server", name, "error", err)
		}
	}()
}

// Stop gracefully shuts down the application's services.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.Info("stopping application services")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	if err := a.MetricsServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
	}

	if err := a.Host.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
	}
	a.Provider.Close()

	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}

	a.Logger.Info("application stopped")
	return errors.Join(errs...)
}
