package providers

import (
	"log/slog"
	"os"

	"github.com/km-arc/go-beans/config"
	"github.com/km-arc/go-beans/container"
	"github.com/km-arc/go-beans/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the application configuration into the
// container as "config".
//
// Bound abstracts:
//   - "config"        → *config.Config
//   - "configuration" → alias for "config"
type ConfigServiceProvider struct {
	container.BaseProvider

	// Config is bound as-is when set; otherwise it is loaded from EnvFiles
	// on first resolution.
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	cfg := p.Config
	envFiles := p.EnvFiles
	app.Singleton("config", func(c *container.Container) any {
		if cfg != nil {
			return cfg
		}
		return config.Load(envFiles...)
	})
	app.Alias("config", "configuration")
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider binds the structured logger into the container as "log".
//
// Bound abstracts:
//   - "log" → *slog.Logger
type LogServiceProvider struct {
	container.BaseProvider

	// Logger is bound as-is when set; otherwise one is built from "config".
	Logger *slog.Logger
}

func (p *LogServiceProvider) Register(app *container.Container) {
	logger := p.Logger
	app.Singleton("log", func(c *container.Container) any {
		if logger != nil {
			return logger
		}
		return NewLogger(container.Resolve[*config.Config](c, "config"))
	})
}

// NewLogger builds the application logger: debug level when APP_DEBUG is set,
// info otherwise.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.App.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router.
//
// Bound abstracts:
//   - "router" → *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) {
	app.Singleton("router", func(c *container.Container) any {
		return routing.New()
	})
}
