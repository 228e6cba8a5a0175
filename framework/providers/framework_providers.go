package providers

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/km-arc/go-uframework/framework/admin"
	"github.com/km-arc/go-uframework/framework/config"
	"github.com/km-arc/go-uframework/framework/container"
	"github.com/km-arc/go-uframework/framework/events"
	"github.com/km-arc/go-uframework/framework/foundation"
	"github.com/km-arc/go-uframework/framework/logging"
	"github.com/km-arc/go-uframework/framework/loop"
	"github.com/km-arc/go-uframework/framework/metrics"
	"github.com/km-arc/go-uframework/framework/routing"
)

// Abstract keys bound by the framework providers.
const (
	ConfigKey           = "config"
	LoggerKey           = "logger"
	MetricsRegistryKey  = "metrics.registry"
	MetricsLifecycleKey = "metrics.lifecycle"
	LoopKey             = "loop"
	RouterKey           = "router"
	AdminKey            = "admin"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the configuration as "config". When Config is
// nil it is loaded from EnvFiles on first resolution.
type ConfigServiceProvider struct {
	foundation.BaseProvider
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *foundation.Application) error {
	if p.Config != nil {
		return app.Instance(ConfigKey, p.Config)
	}
	envFiles := p.EnvFiles
	return app.Singleton(ConfigKey, func(*container.Container) (any, error) {
		return config.Load(envFiles...), nil
	})
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider binds the application logger as "logger".
type LoggingServiceProvider struct {
	foundation.BaseProvider
}

func (p *LoggingServiceProvider) Register(app *foundation.Application) error {
	return app.Instance(LoggerKey, app.Logger())
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider creates the Prometheus registry and the lifecycle
// metrics. Both are built eagerly so every lifecycle event after
// registration is counted. Registering the same provider again rebinds the
// existing pair and never subscribes to a dispatcher twice.
type MetricsServiceProvider struct {
	foundation.BaseProvider
	Config config.MetricsConfig

	registry   *prometheus.Registry
	lifecycle  *metrics.Lifecycle
	subscribed events.Dispatcher
}

func (p *MetricsServiceProvider) Register(app *foundation.Application) error {
	if p.lifecycle == nil {
		registry := metrics.NewRegistry(p.Config.ProcessCollectors)
		lifecycle := metrics.NewLifecycle(p.Config.Namespace)
		if err := lifecycle.Register(registry); err != nil {
			return err
		}
		p.registry, p.lifecycle = registry, lifecycle
	}
	if d := app.Dispatcher(); d != nil && d != p.subscribed {
		p.lifecycle.Subscribe(d)
		p.subscribed = d
	}
	if err := app.Instance(MetricsRegistryKey, p.registry); err != nil {
		return err
	}
	return app.Instance(MetricsLifecycleKey, p.lifecycle)
}

// ── LoopServiceProvider ───────────────────────────────────────────────────────

// LoopServiceProvider binds the update loop as "loop". The loop starts when
// the application starts and stops when it begins terminating.
type LoopServiceProvider struct {
	Config config.LoopConfig
}

func (p *LoopServiceProvider) Register(app *foundation.Application) error {
	interval := p.Config.TickInterval
	logger := logging.For(app.Logger(), "loop")
	return app.Singleton(LoopKey, func(c *container.Container) (any, error) {
		return loop.New(c, interval, logger), nil
	})
}

func (p *LoopServiceProvider) Init(app *foundation.Application) error {
	l, err := container.Resolve[*loop.Loop](app.Container, LoopKey)
	if err != nil {
		return err
	}
	logger := logging.For(app.Logger(), "loop")
	onLifecycle(app,
		func() { l.Start() },
		func() {
			if err := l.Stop(); err != nil {
				logger.Error().Err(err).Msg("loop ended with error")
			}
		},
	)
	return nil
}

// ── AdminServiceProvider ──────────────────────────────────────────────────────

// AdminServiceProvider serves /healthz, /status and /metrics. The metrics
// route is mounted only when "metrics.registry" is bound.
type AdminServiceProvider struct {
	Config config.AdminConfig
}

func (p *AdminServiceProvider) Register(app *foundation.Application) error {
	logger := logging.For(app.Logger(), "admin")
	addr := p.Config.Addr
	if err := app.Singleton(RouterKey, func(*container.Container) (any, error) {
		return routing.New(logger), nil
	}); err != nil {
		return err
	}
	return app.Singleton(AdminKey, func(c *container.Container) (any, error) {
		router, err := container.Resolve[*routing.Router](c, RouterKey)
		if err != nil {
			return nil, err
		}
		var gatherer prometheus.Gatherer
		if c.Bound(MetricsRegistryKey) {
			registry, err := container.Resolve[*prometheus.Registry](c, MetricsRegistryKey)
			if err != nil {
				return nil, err
			}
			gatherer = registry
		}
		admin.Routes(router, app, gatherer)
		return admin.NewServer(addr, router, logger), nil
	})
}

func (p *AdminServiceProvider) Init(app *foundation.Application) error {
	srv, err := container.Resolve[*admin.Server](app.Container, AdminKey)
	if err != nil {
		return err
	}
	logger := logging.For(app.Logger(), "admin")
	onLifecycle(app,
		func() {
			if err := srv.Start(); err != nil {
				logger.Error().Err(err).Str("addr", srv.Addr()).Msg("admin server failed to start")
			}
		},
		func() {
			if err := srv.Stop(); err != nil {
				logger.Error().Err(err).Msg("admin server stopped with error")
			}
		},
	)
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// onLifecycle runs start once app is Running and stop when it begins
// terminating. Without a dispatcher start runs immediately and stop becomes
// a terminate hook.
func onLifecycle(app *foundation.Application, start, stop func()) {
	d := app.Dispatcher()
	if d == nil || app.Process() == foundation.Running {
		start()
	} else {
		d.Listen(foundation.OnStartCompleted, func(sender, _ any) {
			if sender == app {
				start()
			}
		})
	}
	if d == nil {
		app.OnTerminate(func(*foundation.Application) { stop() })
		return
	}
	d.Listen(foundation.OnBeforeTerminate, func(sender, _ any) {
		if sender == app {
			stop()
		}
	})
}

// Framework returns the framework providers enabled by cfg, in registration
// order.
func Framework(cfg *config.Config) []foundation.ServiceProvider {
	list := []foundation.ServiceProvider{
		&ConfigServiceProvider{Config: cfg},
		&LoggingServiceProvider{},
		&MetricsServiceProvider{Config: cfg.Metrics},
		&LoopServiceProvider{Config: cfg.Loop},
	}
	if cfg.Admin.Enabled {
		list = append(list, &AdminServiceProvider{Config: cfg.Admin})
	}
	return list
}
