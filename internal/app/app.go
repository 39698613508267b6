// Package app builds the object graph from a Config and runs the
// front ends over it.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"datalink/internal/config"
	"datalink/internal/domain"
	"datalink/internal/logger"
	"datalink/internal/remote"
	"datalink/internal/secret"
	"datalink/internal/service"
	"datalink/internal/simulate"
	"datalink/internal/storage"
)

// App owns the stores and services for one process.
type App struct {
	cfg     *config.Config
	log     *logger.Logger
	version string

	Connections *service.ConnectionService
	Queries     *service.QueryService
	Schema      *service.SchemaService
	Settings    *service.SettingsService
	Dashboard   *service.DashboardService
	Export      *service.ExportService

	// settingsFile is set when settings live in a watched file.
	settingsFile *storage.FileKV
	closers      []func() error
}

// stores is the persistence triple chosen by storage.backend.
type stores struct {
	conns    domain.ConnectionStore
	queries  domain.QueryLogStore
	settings domain.KeyValueStore
}

// New wires stores, secrets, the simulator and the services.
func New(cfg *config.Config, log *logger.Logger, version string) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{cfg: cfg, log: log, version: version}

	st, err := a.openStores()
	if err != nil {
		a.Close()
		return nil, err
	}

	secrets, err := openSecrets(cfg.Secrets.Backend)
	if err != nil {
		a.Close()
		return nil, err
	}

	sim := newSimulator(cfg.Simulation)
	emitter := service.LogEmitter{Log: log}

	schema, err := service.NewSchemaService(st.conns, sim, emitter, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Connections = service.NewConnectionService(st.conns, secrets, sim, emitter, log)
	a.Connections.UseSchemaCache(schema)
	a.Queries = service.NewQueryService(st.conns, st.queries, sim, emitter, log)
	a.Schema = schema
	a.Settings = service.NewSettingsService(st.settings, emitter, log)
	a.Dashboard = service.NewDashboardService(st.conns, st.queries)
	a.Export = service.NewExportService(st.queries, a.Settings, log)

	log.With().
		Str("backend", cfg.Storage.Backend).
		Str("secrets", cfg.Secrets.Backend).
		Logger().Debug("app initialized")
	return a, nil
}

func (a *App) openStores() (stores, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendMemory:
		return stores{
			conns:    storage.NewMemoryConnectionStore(),
			queries:  storage.NewMemoryQueryLogStore(),
			settings: storage.NewMemoryKV(),
		}, nil

	case config.BackendRemote:
		client, err := remote.NewClient(a.cfg.Remote, a.log)
		if err != nil {
			return stores{}, err
		}
		kv, err := storage.NewFileKV(a.cfg.SettingsDir())
		if err != nil {
			return stores{}, err
		}
		a.settingsFile = kv
		return stores{
			conns:    remote.NewConnectionStore(client),
			queries:  remote.NewQueryLogStore(client),
			settings: kv,
		}, nil

	case config.BackendSQLite, "":
		path := a.cfg.DatabasePath()
		db, err := storage.New(path)
		if err != nil {
			return stores{}, fmt.Errorf("open database %s: %w", path, err)
		}
		a.closers = append(a.closers, db.Close)
		a.log.With().Str("path", path).Logger().Debug("sqlite store opened")
		return stores{
			conns:    storage.NewConnectionStore(db),
			queries:  storage.NewQueryLogStore(db),
			settings: storage.NewSettingsStore(db),
		}, nil
	}
	return stores{}, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
}

func openSecrets(backend string) (secret.SecretStore, error) {
	switch backend {
	case "":
		return openSecrets(config.DefaultSecretsBackend(runtime.GOOS))
	case config.SecretsMemory:
		return secret.NewMemoryStore(), nil
	case config.SecretsKeychain:
		return secret.NewKeychainStore(), nil
	}
	return nil, fmt.Errorf("unknown secrets backend %q", backend)
}

func newSimulator(cfg config.SimulationConfig) *simulate.Simulator {
	var opts []simulate.Option
	if cfg.Seed != 0 {
		opts = append(opts, simulate.WithSeed(cfg.Seed))
	}
	return simulate.New(cfg.Policy, opts...)
}

// Close releases the stores. Safe to call more than once.
func (a *App) Close() error {
	var errList []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errList = append(errList, err)
		}
	}
	a.closers = nil
	return errors.Join(errList...)
}

// startScheduler starts the schema refresh cron when one is configured.
// The returned func stops it.
func (a *App) startScheduler(ctx context.Context) (func(context.Context), error) {
	schedule := a.cfg.Schema.RefreshSchedule
	if schedule == "" {
		return func(context.Context) {}, nil
	}
	if err := a.Schema.StartAutoRefresh(ctx, schedule); err != nil {
		return nil, err
	}
	return a.Schema.Stop, nil
}
