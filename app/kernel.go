package app

import (
	"context"

	"github.com/km-arc/go-uframework/framework/bootstrap"
	"github.com/km-arc/go-uframework/framework/config"
	"github.com/km-arc/go-uframework/framework/facade"
	"github.com/km-arc/go-uframework/framework/foundation"
	"github.com/km-arc/go-uframework/framework/logging"
)

// Kernel owns the Application for the lifetime of the process.
//
//	k := app.NewKernel(config.Load())
//	err := k.Run(ctx) // returns after ctx is done and the app terminated
type Kernel struct {
	Config *config.Config
	App    *foundation.Application
}

// NewKernel creates the Application and makes it current. Run must be
// called from the same goroutine.
func NewKernel(cfg *config.Config, opts ...foundation.Option) *Kernel {
	logger := logging.New(cfg.App, nil)
	level, err := foundation.ParseDebugLevel(cfg.App.DebugLevel)
	if err != nil {
		logger.Warn().Err(err).Msg("falling back to production debug level")
		level = foundation.Production
	}
	opts = append([]foundation.Option{
		foundation.WithLogger(logger),
		foundation.WithDebugLevel(level),
	}, opts...)
	return &Kernel{
		Config: cfg,
		App:    facade.New(true, opts...),
	}
}

// Run bootstraps and initializes the Application, blocks until ctx is done
// and then terminates it.
func (k *Kernel) Run(ctx context.Context) error {
	if err := k.App.Bootstrap(
		&bootstrap.System{Config: k.Config},
		&bootstrap.ProviderList{Providers: Providers()},
	); err != nil {
		return err
	}
	if err := k.App.Init(); err != nil {
		return err
	}
	logger := k.App.Logger()
	logger.Info().Int("providers", len(k.App.Providers())).Msg("application started")

	<-ctx.Done()
	logger.Info().Msg("application terminating")
	return k.App.Terminate()
}
