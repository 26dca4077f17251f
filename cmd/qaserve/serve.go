package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ramili4/ml-ci-pipeline/internal/backend"
	"github.com/ramili4/ml-ci-pipeline/internal/backend/command"
	"github.com/ramili4/ml-ci-pipeline/internal/backend/grpcserver"
	"github.com/ramili4/ml-ci-pipeline/internal/backend/httpserver"
	"github.com/ramili4/ml-ci-pipeline/internal/config"
	"github.com/ramili4/ml-ci-pipeline/internal/model"
	"github.com/ramili4/ml-ci-pipeline/internal/qa"
	"github.com/ramili4/ml-ci-pipeline/internal/server"
	apihttp "github.com/ramili4/ml-ci-pipeline/internal/server/http"
	"github.com/ramili4/ml-ci-pipeline/internal/server/ui"
	"github.com/ramili4/ml-ci-pipeline/internal/service"
)

// servedModel is the loaded model and everything that must be released on exit.
type servedModel struct {
	manager *model.Manager
	adapter *qa.Adapter
	watcher *model.Watcher
}

func (r *servedModel) Close() {
	if r.watcher != nil {
		_ = r.watcher.Close()
	}
	if r.adapter != nil {
		_ = r.adapter.Close()
	}
}

// newRegistry registers a factory for every backend provider, bound to cfg.
func newRegistry(cfg config.InferenceConfig) (*backend.Registry, error) {
	registry := backend.NewRegistry()

	factories := map[backend.Provider]backend.Factory{
		backend.ProviderHTTP: func() (backend.Backend, error) {
			opts := []httpserver.Option{
				httpserver.WithClient(&http.Client{Timeout: cfg.Timeout}),
			}
			if s := cfg.HTTP.Server; s != nil && s.BinPath != "" {
				opts = append(opts, httpserver.WithManagedServer(backend.NewServerManager(), backend.ServerConfig{
					Env:          s.Env,
					BinPath:      s.BinPath,
					HealthPath:   s.HealthPath,
					Args:         s.Args,
					Port:         s.Port,
					ReadyTimeout: s.ReadyTimeout,
				}))
			}
			return httpserver.NewBackend(cfg.HTTP.URL, opts...), nil
		},
		backend.ProviderGRPC: func() (backend.Backend, error) {
			b, err := grpcserver.NewBackend(cfg.GRPC.Target)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
		backend.ProviderCommand: func() (backend.Backend, error) {
			b, err := command.NewBackend(cfg.Command.BinPath, cfg.Command.Args)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
	}

	for provider, factory := range factories {
		if err := registry.Register(provider, factory); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// startModel locates and loads the single model, then watches the models root.
// Any error here is fatal.
func (app *App) startModel(ctx context.Context) (*servedModel, error) {
	cfg := app.cfg

	registry, err := newRegistry(cfg.Inference)
	if err != nil {
		return nil, err
	}

	b, err := registry.New(backend.Provider(cfg.Inference.Backend))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", cfg.Inference.Backend, err)
	}

	rt := &servedModel{manager: model.NewManager(cfg.Storage.ModelsDir, cfg.Model.Name, cfg.Model.Version)}

	_, err = rt.manager.Load(ctx, func(ctx context.Context, path string) (*model.Artifacts, error) {
		adapter, err := qa.NewAdapter(ctx, path, b, qa.WithTimeout(cfg.Inference.Timeout))
		if err != nil {
			return nil, err
		}
		rt.adapter = adapter
		return adapter.Artifacts(), nil
	})
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	rt.watcher, err = model.NewWatcher(cfg.Storage.ModelsDir, rt.adapter.Path(), func(candidates []string, drifted bool) {
		if drifted {
			app.logger.Warn("Models root changed, the served model is no longer its only directory",
				"root", cfg.Storage.ModelsDir,
				"served", rt.adapter.Path(),
				"candidates", candidates,
			)
		}
	})
	if err != nil {
		app.logger.Warn("Failed to watch models root", "root", cfg.Storage.ModelsDir, "error", err)
	}

	return rt, nil
}

func (app *App) metricsPath() string {
	if !app.cfg.Server.Metrics.Enabled {
		return ""
	}
	return app.cfg.Server.Metrics.Path
}

func listenAddr(c *cli.Context, l config.ListenConfig) string {
	if c.IsSet("host") {
		l.Host = c.String("host")
	}
	if c.IsSet("port") {
		l.Port = c.Int("port")
	}
	return l.Addr()
}

// serve runs handler on addr until SIGINT or SIGTERM.
func (app *App) serve(c *cli.Context, name, addr string, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(name, addr, handler,
		server.WithLogger(app.logger),
		server.WithReadHeaderTimeout(app.cfg.Server.ReadHeaderTimeout),
		server.WithShutdownTimeout(app.cfg.Server.ShutdownTimeout),
	)

	return srv.ListenAndServe(ctx)
}

func (app *App) runAPI(c *cli.Context) error {
	rt, err := app.startModel(c.Context)
	if err != nil {
		return err
	}
	defer rt.Close()

	handler := apihttp.NewHandler(
		service.NewQA(rt.adapter, service.SurfaceAPI, app.logger),
		rt.manager,
		apihttp.Options{
			Logger:      app.logger,
			Version:     version,
			MetricsPath: app.metricsPath(),
		},
	)

	return app.serve(c, "api", listenAddr(c, app.cfg.Server.API), handler)
}

func (app *App) runUI(c *cli.Context) error {
	rt, err := app.startModel(c.Context)
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := ui.Options{
		Logger:      app.logger,
		Title:       app.cfg.Server.UI.Title,
		MetricsPath: app.metricsPath(),
		ShowDetails: app.cfg.Server.UI.ShowDetails,
	}
	if rt.watcher != nil {
		opts.Watcher = rt.watcher
	}

	handler := ui.NewHandler(
		service.NewQA(rt.adapter, service.SurfaceUI, app.logger),
		rt.manager.Instance(),
		opts,
	)

	return app.serve(c, "ui", listenAddr(c, app.cfg.Server.UI.ListenConfig), handler)
}
