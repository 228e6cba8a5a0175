package foundation

import (
	"fmt"

	"github.com/km-arc/go-uframework/framework/exception"
)

// Lifecycle event names, as seen by events.Dispatcher listeners.
const (
	OnBeforeBoot       = "app.before_boot"
	OnBooting          = "app.booting"
	OnAfterBoot        = "app.after_boot"
	OnBeforeInit       = "app.before_init"
	OnRegisterProvider = "app.register_provider"
	OnInitProvider     = "app.init_provider"
	OnAfterInit        = "app.after_init"
	OnStartCompleted   = "app.start_completed"
	OnBeforeTerminate  = "app.before_terminate"
	OnAfterTerminate   = "app.after_terminate"
)

// EventKind enumerates the closed set of lifecycle events.
type EventKind int

const (
	EventBeforeBoot EventKind = iota + 1
	EventBooting
	EventAfterBoot
	EventBeforeInit
	EventRegisterProvider
	EventInitProvider
	EventAfterInit
	EventStartCompleted
	EventBeforeTerminate
	EventAfterTerminate
)

// Name returns the dispatcher event name of k. ok is false for a kind outside
// the lifecycle set.
func (k EventKind) Name() (name string, ok bool) {
	switch k {
	case EventBeforeBoot:
		return OnBeforeBoot, true
	case EventBooting:
		return OnBooting, true
	case EventAfterBoot:
		return OnAfterBoot, true
	case EventBeforeInit:
		return OnBeforeInit, true
	case EventRegisterProvider:
		return OnRegisterProvider, true
	case EventInitProvider:
		return OnInitProvider, true
	case EventAfterInit:
		return OnAfterInit, true
	case EventStartCompleted:
		return OnStartCompleted, true
	case EventBeforeTerminate:
		return OnBeforeTerminate, true
	case EventAfterTerminate:
		return OnAfterTerminate, true
	default:
		return "", false
	}
}

func (k EventKind) String() string {
	if name, ok := k.Name(); ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is the payload of every lifecycle event. The set of implementations is
// closed; a listener switches on the concrete type:
//
//	d.Listen(foundation.OnRegisterProvider, func(_, payload any) {
//	    ev := payload.(*foundation.RegisterProviderEvent)
//	    if _, banned := ev.Provider.(*DebugOverlayProvider); banned {
//	        ev.Skip()
//	    }
//	})
type Event interface {
	Kind() EventKind
	Application() *Application
	lifecycleEvent()
}

type appEvent struct {
	app *Application
}

// Application returns the Application raising the event.
func (e *appEvent) Application() *Application { return e.app }

func (*appEvent) lifecycleEvent() {}

// skipper is embedded by events whose default action a listener may veto.
type skipper struct {
	skip bool
}

// Skip vetoes the default action following the event.
func (s *skipper) Skip() { s.skip = true }

// IsSkip reports whether a listener vetoed the default action.
func (s *skipper) IsSkip() bool { return s.skip }

// BeforeBootEvent is raised before any bootstrapper runs. Listeners may
// replace the list with SetBootstrappers.
type BeforeBootEvent struct {
	appEvent
	bootstrappers []Bootstrapper
}

func (*BeforeBootEvent) Kind() EventKind { return EventBeforeBoot }

// Bootstrappers returns the list about to run.
func (e *BeforeBootEvent) Bootstrappers() []Bootstrapper { return e.bootstrappers }

// SetBootstrappers replaces the list about to run.
func (e *BeforeBootEvent) SetBootstrappers(b ...Bootstrapper) { e.bootstrappers = b }

// BootingEvent is raised before each bootstrapper; Skip prevents it from running.
type BootingEvent struct {
	appEvent
	skipper
	Bootstrapper Bootstrapper
}

func (*BootingEvent) Kind() EventKind { return EventBooting }

// AfterBootEvent is raised once every bootstrapper has run.
type AfterBootEvent struct{ appEvent }

func (*AfterBootEvent) Kind() EventKind { return EventAfterBoot }

// BeforeInitEvent is raised before providers are initialized.
type BeforeInitEvent struct{ appEvent }

func (*BeforeInitEvent) Kind() EventKind { return EventBeforeInit }

// RegisterProviderEvent is raised before a provider's Register; Skip abandons
// the registration.
type RegisterProviderEvent struct {
	appEvent
	skipper
	Provider ServiceProvider
}

func (*RegisterProviderEvent) Kind() EventKind { return EventRegisterProvider }

// InitProviderEvent is raised before a provider's Init.
type InitProviderEvent struct {
	appEvent
	Provider ServiceProvider
}

func (*InitProviderEvent) Kind() EventKind { return EventInitProvider }

// AfterInitEvent is raised once every provider has been initialized.
type AfterInitEvent struct{ appEvent }

func (*AfterInitEvent) Kind() EventKind { return EventAfterInit }

// StartCompletedEvent is raised when the application enters Running.
type StartCompletedEvent struct{ appEvent }

func (*StartCompletedEvent) Kind() EventKind { return EventStartCompleted }

// BeforeTerminateEvent is raised when termination starts, before the
// container is flushed.
type BeforeTerminateEvent struct{ appEvent }

func (*BeforeTerminateEvent) Kind() EventKind { return EventBeforeTerminate }

// AfterTerminateEvent is raised once the application is Terminated.
type AfterTerminateEvent struct{ appEvent }

func (*AfterTerminateEvent) Kind() EventKind { return EventAfterTerminate }

// raise delivers ev to the application's dispatcher and hands it back so the
// caller can inspect what listeners did to it. Without a dispatcher it is a
// no-op that still returns ev.
func raise[E Event](a *Application, ev E) (E, error) {
	name, ok := ev.Kind().Name()
	if !ok {
		return ev, exception.Assertion("raise", "undefined event %T (%v)", ev, ev.Kind())
	}
	d := a.Dispatcher()
	if d == nil {
		return ev, nil
	}
	d.Raise(name, a, ev)
	return ev, nil
}
