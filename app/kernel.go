package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-beans/config"
	"github.com/km-arc/go-beans/container"
	"github.com/km-arc/go-beans/providers"
	"github.com/km-arc/go-beans/registry"
	"github.com/km-arc/go-beans/routing"
)

// Application is the top-level application container. It embeds the service
// container and the ProviderRegistry so user code can call app.Bind(),
// app.Singleton(), app.Register() directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
}

// New creates and bootstraps the application. Configuration is loaded eagerly
// so registry behavior (alias overriding, log level) can be set before any
// binding exists.
func New(envFiles ...string) *Application {
	cfg := config.Load(envFiles...)
	logger := providers.NewLogger(cfg)

	c := container.New(
		registry.WithLogger(logger),
		registry.WithAliasOverriding(cfg.Registry.AliasOverriding),
	)
	reg := container.NewProviderRegistry(c)

	app := &Application{
		Container: c,
		Providers: reg,
	}

	// Core providers, in dependency order.
	reg.Register(&providers.ConfigServiceProvider{Config: cfg})
	reg.Register(&providers.LogServiceProvider{Logger: logger})
	reg.Register(&providers.RoutingServiceProvider{})

	return app
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) {
	a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() {
	a.Providers.Boot()
}

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return container.Resolve[*config.Config](a.Container, "config")
}

// Log resolves the application logger from the container.
func (a *Application) Log() *slog.Logger {
	return container.Resolve[*slog.Logger](a.Container, "log")
}

// Router resolves *routing.Router from the container.
func (a *Application) Router() *routing.Router {
	return container.Resolve[*routing.Router](a.Container, "router")
}

// Run boots the application (if needed), starts the HTTP server and blocks
// until SIGINT/SIGTERM or a listener failure. Shutdown is graceful: the
// server is registered as a shared instance depending on "router", so
// Terminate drains it before the rest of the teardown runs.
func (a *Application) Run() error {
	if !a.Providers.Booted() {
		a.Boot()
	}
	cfg := a.Config()
	log := a.Log()
	router := a.Router()

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}
	a.Instance("http.server", srv)
	a.DependsOn("http.server", "router")
	a.Disposable("http.server", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "name", cfg.App.Name, "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.Terminate()
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		a.Terminate()
		return nil
	}
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }
func (a *Application) Version() string     { return "0.1.0" }
