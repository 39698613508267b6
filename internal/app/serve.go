package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"datalink/internal/api"
	mcpserver "datalink/internal/mcp"
)

// Serve runs the HTTP API, the settings watcher and the schema scheduler
// until ctx is cancelled or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	stop, err := a.startScheduler(egctx)
	if err != nil {
		return err
	}
	defer stop(context.Background())

	srv := api.NewServer(api.Config{
		Addr:            a.cfg.Server.Addr,
		ReadTimeout:     a.cfg.Server.ReadTimeout,
		WriteTimeout:    a.cfg.Server.WriteTimeout,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
	}, api.Deps{
		Connections: a.Connections,
		Queries:     a.Queries,
		Schema:      a.Schema,
		Settings:    a.Settings,
		Dashboard:   a.Dashboard,
		Export:      a.Export,
		Log:         a.log,
		Version:     a.version,
	})
	eg.Go(func() error {
		return srv.Serve(egctx)
	})

	if a.settingsFile != nil {
		eg.Go(func() error {
			return a.settingsFile.Watch(egctx, a.log, func(key string) {
				a.Settings.Reload(egctx, key)
			})
		})
	}

	return eg.Wait()
}

// ServeMCP runs the MCP server on stdin/stdout until ctx is cancelled or
// the client disconnects. Logs must not go to stdout in this mode.
func (a *App) ServeMCP(ctx context.Context) error {
	stop, err := a.startScheduler(ctx)
	if err != nil {
		return err
	}
	defer stop(context.Background())

	srv := mcpserver.New(mcpserver.Deps{
		Connections: a.Connections,
		Queries:     a.Queries,
		Schema:      a.Schema,
		Export:      a.Export,
		Log:         a.log,
		Version:     a.version,
	})
	err = srv.ServeStdio(ctx)
	a.Queries.WaitRunning(context.Background())
	return err
}
