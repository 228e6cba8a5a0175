package foundation

// ServiceProvider contributes services to an Application in two phases.
//
// Register only binds services into the container: any attempt to resolve
// through the container while Register runs fails with a logic error.
// Init runs after every provider of the batch has been registered (or right
// after its own Register when the Application is already running) and may
// resolve anything already bound.
//
//	type InputProvider struct{ foundation.BaseProvider }
//
//	func (p *InputProvider) Register(app *foundation.Application) error {
//	    return container.SingletonOf(app.Container, func(*container.Container) (*input.Manager, error) {
//	        return input.NewManager(), nil
//	    })
//	}
//
// Providers are identified by ==, so implement them on pointer types.
type ServiceProvider interface {
	Register(app *Application) error
	Init(app *Application) error
}

// BaseProvider is an embeddable struct with a no-op Init.
type BaseProvider struct{}

// Init implements ServiceProvider.
func (p *BaseProvider) Init(*Application) error { return nil }

// Bootstrapper is a one-shot setup unit run by Application.Bootstrap before
// any provider is initialized. It commonly registers a fixed provider set.
// Bootstrappers are identified by ==, so implement them on pointer types.
type Bootstrapper interface {
	Bootstrap(app *Application) error
}
