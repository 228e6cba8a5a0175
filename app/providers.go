// Package app holds the application's own services and the providers that
// register them. Both services are driven by the update loop.
package app

import (
	"github.com/km-arc/go-uframework/framework/container"
	"github.com/km-arc/go-uframework/framework/foundation"
	"github.com/km-arc/go-uframework/framework/loop"
)

const (
	TimerKey = "timer"
	TweenKey = "tween"
)

// TimerServiceProvider binds a *Timer as "timer" and hands it to the loop.
type TimerServiceProvider struct {
	foundation.BaseProvider
}

func (p *TimerServiceProvider) Register(app *foundation.Application) error {
	if err := app.Singleton(TimerKey, func(*container.Container) (any, error) {
		return NewTimer(app.NextRuntimeID), nil
	}); err != nil {
		return err
	}
	app.Tag([]string{TimerKey}, loop.TagUpdatable)
	return nil
}

// TweenServiceProvider binds *Tweens as "tween" and hands it to the loop.
type TweenServiceProvider struct {
	foundation.BaseProvider
}

func (p *TweenServiceProvider) Register(app *foundation.Application) error {
	if err := app.Singleton(TweenKey, func(*container.Container) (any, error) {
		return NewTweens(app.NextRuntimeID), nil
	}); err != nil {
		return err
	}
	app.Tag([]string{TweenKey}, loop.TagUpdatable)
	return nil
}

// Providers lists the application providers in registration order.
func Providers() []foundation.ServiceProvider {
	return []foundation.ServiceProvider{
		&TimerServiceProvider{},
		&TweenServiceProvider{},
	}
}
