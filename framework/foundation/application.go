// Package foundation implements the application lifecycle: bootstrapping,
// two-phase service provider registration, initialization and termination,
// each transition republished as a lifecycle event.
//
// The host drives it from one goroutine:
//
//	app := foundation.New(foundation.WithLogger(logger))
//	if err := app.Bootstrap(&bootstrap.System{Config: cfg}); err != nil { ... }
//	if err := app.Init(); err != nil { ... }
//	// ... resolve services from app.Container, run the loop ...
//	_ = app.Terminate()
//
// Lifecycle errors are contract violations (see package exception): after one
// the Application must be discarded.
package foundation

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
	"github.com/nats-io/nuid"
	"github.com/rs/zerolog"

	"github.com/km-arc/go-uframework/framework/container"
	"github.com/km-arc/go-uframework/framework/events"
	"github.com/km-arc/go-uframework/framework/exception"
)

// Abstract keys of the base bindings every Application starts with.
const (
	AppKey        = "app"
	EventsKey     = "events"
	DebugLevelKey = "debug_level"
)

const version = "1.0.0"

var frameworkVersion = semver.MustParse(version)

// Version returns the framework version.
func Version() *semver.Version { return frameworkVersion }

// Application is the lifecycle orchestrator. It embeds its Container so
// services are bound and resolved directly on it: app.Singleton(...),
// app.Make(...).
//
// Lifecycle and registration methods must be called from the goroutine that
// called New; they fail with a logic error otherwise. Only NextRuntimeID and
// the read accessors are safe for concurrent use.
type Application struct {
	*container.Container

	id     string
	logger zerolog.Logger
	owner  uint64

	mu         sync.RWMutex
	dispatcher events.Dispatcher
	debugLevel DebugLevel

	providers    []ServiceProvider
	bootstrapped bool
	inited       bool

	process     atomic.Int32
	registering atomic.Bool
	runtimeID   atomic.Int64

	terminateHooks []func(*Application)
}

// Option configures an Application at construction.
type Option func(*options)

type options struct {
	logger        zerolog.Logger
	dispatcher    events.Dispatcher
	dispatcherSet bool
	debugLevel    DebugLevel
}

// WithLogger sets the application logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDispatcher replaces the default dispatcher. A nil dispatcher disables
// lifecycle events.
func WithDispatcher(d events.Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
		o.dispatcherSet = true
	}
}

// WithDebugLevel sets the initial debug level (default Production).
func WithDebugLevel(l DebugLevel) Option {
	return func(o *options) { o.debugLevel = l }
}

// New creates an Application in the Construct phase, bound into its own
// container under AppKey together with its dispatcher and debug level.
func New(opts ...Option) *Application {
	o := options{logger: zerolog.Nop(), debugLevel: Production}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.dispatcherSet {
		o.dispatcher = events.NewEventDispatcher()
	}

	a := &Application{
		Container: container.New(),
		id:        nuid.Next(),
		owner:     goroutineID(),
	}
	a.logger = o.logger.With().
		Str("app", a.id).
		Str("version", frameworkVersion.String()).
		Logger()
	a.process.Store(int32(Construct))
	a.Container.OnGuard(a.guardConstruct)

	a.bindBase(AppKey, a)
	a.SetDispatcher(o.dispatcher)
	a.SetDebugLevel(o.debugLevel)
	return a
}

// bindBase panics on failure: the keys are constants, so an error is a defect.
func (a *Application) bindBase(abstract string, instance any) {
	if err := a.Instance(abstract, instance); err != nil {
		panic(err)
	}
}

// ── Accessors ─────────────────────────────────────────────────────────────────

// ID returns the unique id of this Application instance.
func (a *Application) ID() string { return a.id }

// Logger returns the application logger.
func (a *Application) Logger() zerolog.Logger { return a.logger }

// Process returns the current lifecycle phase.
func (a *Application) Process() StartProcess { return StartProcess(a.process.Load()) }

// IsOwnerGoroutine reports whether the caller runs on the goroutine that
// constructed the Application.
func (a *Application) IsOwnerGoroutine() bool { return goroutineID() == a.owner }

// Dispatcher returns the lifecycle event dispatcher, possibly nil.
func (a *Application) Dispatcher() events.Dispatcher {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dispatcher
}

// SetDispatcher replaces the dispatcher and its EventsKey binding. A nil
// dispatcher turns lifecycle events into no-ops.
func (a *Application) SetDispatcher(d events.Dispatcher) {
	a.mu.Lock()
	a.dispatcher = d
	a.mu.Unlock()
	if d == nil {
		a.Forget(EventsKey)
		return
	}
	a.bindBase(EventsKey, d)
}

// DebugLevel returns the current debug level.
func (a *Application) DebugLevel() DebugLevel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.debugLevel
}

// SetDebugLevel changes the debug level and rebinds DebugLevelKey.
func (a *Application) SetDebugLevel(l DebugLevel) {
	a.mu.Lock()
	a.debugLevel = l
	a.mu.Unlock()
	a.bindBase(DebugLevelKey, l)
}

// Providers returns the registered providers in registration order.
func (a *Application) Providers() []ServiceProvider {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.providers)
}

// IsRegistered reports whether provider is in the provider list. A nil
// provider is never registered.
func (a *Application) IsRegistered(provider ServiceProvider) bool {
	if isNil(provider) || !isComparable(provider) {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.indexOf(provider) >= 0
}

// NextRuntimeID returns a strictly increasing id, starting at 1. Safe for
// concurrent use.
func (a *Application) NextRuntimeID() int64 {
	return a.runtimeID.Add(1)
}

// OnTerminate adds a hook run while terminating, after the container is
// flushed and before the Terminated phase is entered.
func (a *Application) OnTerminate(hook func(*Application)) {
	if hook != nil {
		a.terminateHooks = append(a.terminateHooks, hook)
	}
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Bootstrap runs each bootstrapper once, in order. Listeners of
// OnBeforeBoot may replace the list; listeners of OnBooting may skip a single
// bootstrapper. Nil entries are ignored; a bootstrapper listed twice is a
// logic error.
func (a *Application) Bootstrap(bootstrappers ...Bootstrapper) error {
	const op = "Bootstrap"
	if err := a.assertOwner(op); err != nil {
		return err
	}
	if a.bootstrapped || a.Process() != Construct {
		return exception.Logic(op, "cannot repeatedly trigger Bootstrap()")
	}

	a.setProcess(Bootstrap)
	before, err := raise(a, &BeforeBootEvent{appEvent: appEvent{a}, bootstrappers: bootstrappers})
	if err != nil {
		return err
	}
	bootstrappers = before.Bootstrappers()
	a.setProcess(Bootstrapping)

	seen := make(map[Bootstrapper]struct{}, len(bootstrappers))
	for _, b := range bootstrappers {
		if isNil(b) {
			continue
		}
		if !isComparable(b) {
			return exception.Argument(op, "bootstrapper %T is not comparable, implement it on a pointer", b)
		}
		if _, dup := seen[b]; dup {
			return exception.Logic(op, "the bootstrapper already exists: %T", b)
		}
		seen[b] = struct{}{}

		booting, err := raise(a, &BootingEvent{appEvent: appEvent{a}, Bootstrapper: b})
		if err != nil {
			return err
		}
		if booting.IsSkip() {
			a.logger.Debug().Str("bootstrapper", fmt.Sprintf("%T", b)).Msg("bootstrapper skipped")
			continue
		}
		if err := b.Bootstrap(a); err != nil {
			return fmt.Errorf("bootstrap %T: %w", b, err)
		}
	}

	a.bootstrapped = true
	a.setProcess(Bootstrapped)
	_, err = raise(a, &AfterBootEvent{appEvent{a}})
	return err
}

// Init initializes every registered provider in registration order and
// enters Running. It must follow a successful Bootstrap and runs once.
// A provider failing its Init leaves the Application in Initing.
func (a *Application) Init() error {
	const op = "Init"
	if err := a.assertOwner(op); err != nil {
		return err
	}
	if !a.bootstrapped {
		return exception.Logic(op, "you must call Bootstrap() first")
	}
	if a.inited || a.Process() != Bootstrapped {
		return exception.Logic(op, "cannot repeatedly trigger Init()")
	}

	a.setProcess(Init)
	if _, err := raise(a, &BeforeInitEvent{appEvent{a}}); err != nil {
		return err
	}
	a.setProcess(Initing)

	for _, provider := range a.Providers() {
		if err := a.initProvider(provider); err != nil {
			return err
		}
	}

	a.inited = true
	a.setProcess(Inited)
	if _, err := raise(a, &AfterInitEvent{appEvent{a}}); err != nil {
		return err
	}

	a.setProcess(Running)
	_, err := raise(a, &StartCompletedEvent{appEvent{a}})
	return err
}

// Register adds provider to the application. Registering an already
// registered provider is a logic error; see ForceRegister.
//
// Registration is refused while providers are being initialized and once
// termination has started. When the Application is already Running the
// provider is initialized before Register returns.
func (a *Application) Register(provider ServiceProvider) error {
	return a.register("Register", provider, false)
}

// ForceRegister is Register, except an already registered provider is
// removed and registered again at the end of the provider order.
func (a *Application) ForceRegister(provider ServiceProvider) error {
	return a.register("ForceRegister", provider, true)
}

func (a *Application) register(op string, provider ServiceProvider, force bool) error {
	if isNil(provider) {
		return exception.Argument(op, `parameter "provider" can not be nil`)
	}
	if !isComparable(provider) {
		return exception.Argument(op, "provider %T is not comparable, implement it on a pointer", provider)
	}
	if err := a.assertOwner(op); err != nil {
		return err
	}

	switch process := a.Process(); {
	case process == Initing:
		return exception.Logic(op, "unable to add service provider during %s", Initing)
	case process > Running:
		return exception.Logic(op, "unable to register service provider during %s", process)
	}
	if a.indexOf(provider) >= 0 && !force {
		return exception.Logic(op, "provider %T is already registered", provider)
	}

	ev, err := raise(a, &RegisterProviderEvent{appEvent: appEvent{a}, Provider: provider})
	if err != nil {
		return err
	}
	if ev.IsSkip() {
		a.logger.Debug().Str("provider", fmt.Sprintf("%T", provider)).Msg("provider registration skipped")
		return nil
	}

	if i := a.indexOf(provider); i >= 0 {
		a.mu.Lock()
		a.providers = slices.Delete(a.providers, i, i+1)
		a.mu.Unlock()
	}
	if err := a.registerProvider(provider); err != nil {
		return err
	}
	a.mu.Lock()
	a.providers = append(a.providers, provider)
	a.mu.Unlock()
	a.logger.Debug().Str("provider", fmt.Sprintf("%T", provider)).Msg("provider registered")

	if a.inited {
		return a.initProvider(provider)
	}
	return nil
}

// registerProvider calls provider.Register with container resolution locked.
// The lock is released on every exit path, panics included.
func (a *Application) registerProvider(provider ServiceProvider) (err error) {
	before := a.Bindings()
	release := a.lockResolution()
	defer func() {
		release()
		if err != nil {
			a.warnPartialBindings(provider, before)
		}
	}()

	if err := provider.Register(a); err != nil {
		return fmt.Errorf("register provider %T: %w", provider, err)
	}
	return nil
}

// lockResolution sets the registering flag and returns its release. Nested
// registrations restore the outer state.
func (a *Application) lockResolution() (release func()) {
	prev := a.registering.Swap(true)
	return func() { a.registering.Store(prev) }
}

// warnPartialBindings logs what a failed Register left behind. Nothing is
// rolled back.
func (a *Application) warnPartialBindings(provider ServiceProvider, before []string) {
	var added []string
	for _, key := range a.Bindings() {
		if _, found := slices.BinarySearch(before, key); !found {
			added = append(added, key)
		}
	}
	if len(added) == 0 {
		return
	}
	a.logger.Warn().
		Str("provider", fmt.Sprintf("%T", provider)).
		Strs("bindings", added).
		Msg("provider failed to register, bindings it added are kept")
}

func (a *Application) initProvider(provider ServiceProvider) error {
	if _, err := raise(a, &InitProviderEvent{appEvent: appEvent{a}, Provider: provider}); err != nil {
		return err
	}
	if err := provider.Init(a); err != nil {
		return fmt.Errorf("init provider %T: %w", provider, err)
	}
	a.logger.Debug().Str("provider", fmt.Sprintf("%T", provider)).Msg("provider initialized")
	return nil
}

// Terminate flushes the container and runs the OnTerminate hooks. It may be
// called in any phase up to Running, once.
func (a *Application) Terminate() error {
	const op = "Terminate"
	if err := a.assertOwner(op); err != nil {
		return err
	}
	if a.Process() > Running {
		return exception.Logic(op, "cannot repeatedly trigger Terminate()")
	}

	a.setProcess(Terminate)
	if _, err := raise(a, &BeforeTerminateEvent{appEvent{a}}); err != nil {
		return err
	}
	a.setProcess(Terminating)

	a.Flush()
	for _, hook := range a.terminateHooks {
		hook(a)
	}

	a.setProcess(Terminated)
	_, err := raise(a, &AfterTerminateEvent{appEvent{a}})
	return err
}

// ── Internals ─────────────────────────────────────────────────────────────────

// guardConstruct forbids resolution while a provider is inside Register.
func (a *Application) guardConstruct(method string) error {
	if a.registering.Load() {
		return exception.Logic(method,
			"it is not allowed to make services or inject dependencies during Register")
	}
	return nil
}

func (a *Application) assertOwner(op string) error {
	if !a.IsOwnerGoroutine() {
		return exception.Logic(op, "must be called from the goroutine that created the application")
	}
	return nil
}

func (a *Application) setProcess(p StartProcess) {
	a.process.Store(int32(p))
	a.logger.Debug().Stringer("process", p).Msg("lifecycle")
}

func (a *Application) indexOf(provider ServiceProvider) int {
	for i, p := range a.providers {
		if p == provider {
			return i
		}
	}
	return -1
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// isComparable inspects the dynamic value, so a struct whose interface field
// holds a slice is rejected before == or a map lookup can panic on it.
func isComparable(v any) bool {
	return reflect.ValueOf(v).Comparable()
}
