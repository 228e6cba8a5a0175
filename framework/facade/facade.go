// Package facade keeps an optional process-wide "current" Application for the
// outermost composition layer (the host's main package). Framework packages
// never read it; they receive the Application as a parameter.
package facade

import (
	"errors"
	"sync/atomic"

	"github.com/km-arc/go-uframework/framework/container"
	"github.com/km-arc/go-uframework/framework/foundation"
)

// ErrNoApplication is returned by the helpers when no Application is current.
var ErrNoApplication = errors.New("facade: no current application")

var current atomic.Pointer[foundation.Application]

// New creates an Application and, when global is true, makes it current.
// The current reference is cleared when that Application terminates.
func New(global bool, opts ...foundation.Option) *foundation.Application {
	app := foundation.New(opts...)
	if global {
		Set(app)
	}
	return app
}

// Set makes app current and arranges for it to be cleared on termination,
// unless another Application became current in the meantime.
func Set(app *foundation.Application) {
	if app == nil {
		current.Store(nil)
		return
	}
	current.Store(app)
	app.OnTerminate(func(a *foundation.Application) {
		current.CompareAndSwap(a, nil)
	})
}

// App returns the current Application, or nil.
func App() *foundation.Application {
	return current.Load()
}

// Make resolves abstract from the current Application's container.
func Make(abstract string) (any, error) {
	app := App()
	if app == nil {
		return nil, ErrNoApplication
	}
	return app.Make(abstract)
}

// Resolve is the typed form of Make.
func Resolve[T any](abstract string) (T, error) {
	app := App()
	if app == nil {
		var zero T
		return zero, ErrNoApplication
	}
	return container.Resolve[T](app.Container, abstract)
}
