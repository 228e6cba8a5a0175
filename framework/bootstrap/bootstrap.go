// Package bootstrap holds the Bootstrappers a host passes to
// Application.Bootstrap. Bootstrappers are compared by identity, so always
// pass them by pointer.
//
//	application.Bootstrap(
//	    &bootstrap.System{Config: cfg},
//	    &bootstrap.ProviderList{Providers: []foundation.ServiceProvider{
//	        &app.TimerServiceProvider{},
//	    }},
//	)
package bootstrap

import (
	"fmt"

	"github.com/km-arc/go-uframework/framework/config"
	"github.com/km-arc/go-uframework/framework/exception"
	"github.com/km-arc/go-uframework/framework/foundation"
	"github.com/km-arc/go-uframework/framework/providers"
)

// System registers the framework providers enabled by Config.
type System struct {
	Config *config.Config
}

func (s *System) Bootstrap(app *foundation.Application) error {
	if s.Config == nil {
		return exception.Argument("System.Bootstrap", `field "Config" can not be nil`)
	}
	for _, p := range providers.Framework(s.Config) {
		if err := app.Register(p); err != nil {
			return fmt.Errorf("system provider %T: %w", p, err)
		}
	}
	return nil
}

// ProviderList registers each provider in order. Nil entries and providers
// that are already registered are skipped.
type ProviderList struct {
	Providers []foundation.ServiceProvider
}

func (l *ProviderList) Bootstrap(app *foundation.Application) error {
	for _, p := range l.Providers {
		if p == nil || app.IsRegistered(p) {
			continue
		}
		if err := app.Register(p); err != nil {
			return err
		}
	}
	return nil
}
