package foundation_test

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-uframework/framework/container"
	"github.com/km-arc/go-uframework/framework/events"
	"github.com/km-arc/go-uframework/framework/exception"
	"github.com/km-arc/go-uframework/framework/foundation"
)

// ── stubs ─────────────────────────────────────────────────────────────────────

// journal records calls across providers and bootstrappers in order.
type journal struct{ entries []string }

func (j *journal) add(s string) { j.entries = append(j.entries, s) }

func (j *journal) count(s string) int {
	n := 0
	for _, e := range j.entries {
		if e == s {
			n++
		}
	}
	return n
}

type stubProvider struct {
	name     string
	journal  *journal
	register func(app *foundation.Application) error
	init     func(app *foundation.Application) error
}

func (p *stubProvider) Register(app *foundation.Application) error {
	p.journal.add(p.name + ".Register")
	if p.register != nil {
		return p.register(app)
	}
	return nil
}

func (p *stubProvider) Init(app *foundation.Application) error {
	p.journal.add(p.name + ".Init")
	if p.init != nil {
		return p.init(app)
	}
	return nil
}

type stubBootstrap struct {
	name    string
	journal *journal
	boot    func(app *foundation.Application) error
}

func (b *stubBootstrap) Bootstrap(app *foundation.Application) error {
	b.journal.add(b.name + ".Bootstrap")
	if b.boot != nil {
		return b.boot(app)
	}
	return nil
}

func newProvider(j *journal, name string) *stubProvider {
	return &stubProvider{name: name, journal: j}
}

func running(t *testing.T, providers ...foundation.ServiceProvider) *foundation.Application {
	t.Helper()
	app := foundation.New()
	require.NoError(t, app.Bootstrap(&stubBootstrap{
		name:    "boot",
		journal: &journal{},
		boot: func(app *foundation.Application) error {
			for _, p := range providers {
				if err := app.Register(p); err != nil {
					return err
				}
			}
			return nil
		},
	}))
	require.NoError(t, app.Init())
	return app
}

// ── construction ──────────────────────────────────────────────────────────────

func TestNew_Defaults(t *testing.T) {
	app := foundation.New()

	assert.Equal(t, foundation.Construct, app.Process())
	assert.True(t, app.IsOwnerGoroutine())
	assert.NotEmpty(t, app.ID())
	assert.Equal(t, foundation.Production, app.DebugLevel())
	assert.NotNil(t, app.Dispatcher())
	assert.Equal(t, "1.0.0", foundation.Version().String())
}

func TestNew_BaseBindings(t *testing.T) {
	app := foundation.New(foundation.WithDebugLevel(foundation.Development))

	self, err := container.Resolve[*foundation.Application](app.Container, foundation.AppKey)
	require.NoError(t, err)
	assert.Same(t, app, self)

	d, err := container.Resolve[events.Dispatcher](app.Container, foundation.EventsKey)
	require.NoError(t, err)
	assert.Equal(t, app.Dispatcher(), d)

	level, err := container.Resolve[foundation.DebugLevel](app.Container, foundation.DebugLevelKey)
	require.NoError(t, err)
	assert.Equal(t, foundation.Development, level)
}

func TestSetDispatcher_Rebinds(t *testing.T) {
	app := foundation.New()
	d := events.NewEventDispatcher()
	app.SetDispatcher(d)

	got, err := app.Make(foundation.EventsKey)
	require.NoError(t, err)
	assert.Same(t, d, got)

	app.SetDispatcher(nil)
	assert.False(t, app.Bound(foundation.EventsKey))
}

func TestSetDebugLevel_Rebinds(t *testing.T) {
	app := foundation.New()
	app.SetDebugLevel(foundation.Staging)

	got, err := app.Make(foundation.DebugLevelKey)
	require.NoError(t, err)
	assert.Equal(t, foundation.Staging, got)
}

// ── state machine ─────────────────────────────────────────────────────────────

func TestInit_BeforeBootstrap(t *testing.T) {
	app := foundation.New()
	err := app.Init()
	assert.True(t, exception.IsLogic(err), "got %v", err)
	assert.Equal(t, foundation.Construct, app.Process())
}

func TestBootstrap_Twice(t *testing.T) {
	app := foundation.New()
	require.NoError(t, app.Bootstrap())

	err := app.Bootstrap()
	assert.True(t, exception.IsLogic(err), "got %v", err)
	assert.Equal(t, foundation.Bootstrapped, app.Process())
}

func TestBootstrap_AfterRegisteringProviders(t *testing.T) {
	app := running(t)
	err := app.Bootstrap()
	assert.True(t, exception.IsLogic(err))
}

func TestInit_Twice(t *testing.T) {
	app := running(t)
	err := app.Init()
	assert.True(t, exception.IsLogic(err), "got %v", err)
	assert.Equal(t, foundation.Running, app.Process())
}

func TestBootstrap_DuplicateBootstrapper(t *testing.T) {
	app := foundation.New()
	j := &journal{}
	b := &stubBootstrap{name: "b", journal: j}

	err := app.Bootstrap(b, b)
	assert.True(t, exception.IsLogic(err), "got %v", err)
	assert.Equal(t, 1, j.count("b.Bootstrap"))
}

func TestBootstrap_NilBootstrapperIgnored(t *testing.T) {
	app := foundation.New()
	j := &journal{}
	var typedNil *stubBootstrap

	require.NoError(t, app.Bootstrap(nil, typedNil, &stubBootstrap{name: "b", journal: j}))
	assert.Equal(t, []string{"b.Bootstrap"}, j.entries)
}

func TestBootstrap_ErrorPropagates(t *testing.T) {
	app := foundation.New()
	boom := errors.New("boom")
	err := app.Bootstrap(&stubBootstrap{name: "b", journal: &journal{}, boot: func(*foundation.Application) error {
		return boom
	}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, foundation.Bootstrapping, app.Process())
}

func TestScenario_BootstrapRegistersProvider(t *testing.T) {
	j := &journal{}
	x := newProvider(j, "X")
	app := foundation.New()

	b1 := &stubBootstrap{name: "B1", journal: j, boot: func(app *foundation.Application) error {
		return app.Register(x)
	}}
	b2 := &stubBootstrap{name: "B2", journal: j}

	require.NoError(t, app.Bootstrap(b1, b2))
	require.NoError(t, app.Init())

	assert.Equal(t, 1, j.count("X.Init"))
	assert.Equal(t, foundation.Running, app.Process())
	assert.Equal(t, []string{"B1.Bootstrap", "X.Register", "B2.Bootstrap", "X.Init"}, j.entries)
}

// ── registration ──────────────────────────────────────────────────────────────

func TestRegister_Nil(t *testing.T) {
	app := foundation.New()
	var typedNil *stubProvider

	assert.True(t, exception.IsArgument(app.Register(nil)))
	assert.True(t, exception.IsArgument(app.Register(typedNil)))
	assert.False(t, app.IsRegistered(nil))
}

func TestRegister_Twice(t *testing.T) {
	app := foundation.New()
	p := newProvider(&journal{}, "P")

	require.NoError(t, app.Register(p))
	err := app.Register(p)
	assert.True(t, exception.IsLogic(err), "got %v", err)
	assert.Len(t, app.Providers(), 1)
}

// valueProvider is registered by value; deps may hold something not comparable.
type valueProvider struct{ deps any }

func (valueProvider) Register(*foundation.Application) error { return nil }
func (valueProvider) Init(*foundation.Application) error     { return nil }

type valueBootstrap struct{ deps any }

func (valueBootstrap) Bootstrap(*foundation.Application) error { return nil }

func TestRegister_ValueHoldingSlice(t *testing.T) {
	app := foundation.New()
	p := valueProvider{deps: []int{1}}

	for i := 0; i < 2; i++ {
		err := app.Register(p)
		assert.True(t, exception.IsArgument(err), "attempt %d: got %v", i, err)
	}
	assert.False(t, app.IsRegistered(p))
	assert.Empty(t, app.Providers())
}

func TestRegister_ComparableValue(t *testing.T) {
	app := foundation.New()
	p := valueProvider{deps: "input"}

	require.NoError(t, app.Register(p))
	assert.True(t, app.IsRegistered(p))
	assert.True(t, exception.IsLogic(app.Register(p)))
}

func TestBootstrap_ValueHoldingSlice(t *testing.T) {
	app := foundation.New()
	err := app.Bootstrap(valueBootstrap{deps: []int{1}})
	assert.True(t, exception.IsArgument(err), "got %v", err)
}

func TestForceRegister_MovesToEnd(t *testing.T) {
	app := foundation.New()
	j := &journal{}
	p, q := newProvider(j, "P"), newProvider(j, "Q")

	require.NoError(t, app.Register(p))
	require.NoError(t, app.Register(q))
	require.NoError(t, app.ForceRegister(p))

	assert.Equal(t, []foundation.ServiceProvider{q, p}, app.Providers())
	assert.Equal(t, 2, j.count("P.Register"))
	assert.True(t, app.IsRegistered(p))
}

func TestForceRegister_New(t *testing.T) {
	app := foundation.New()
	p := newProvider(&journal{}, "P")
	require.NoError(t, app.ForceRegister(p))
	assert.Equal(t, []foundation.ServiceProvider{p}, app.Providers())
}

func TestInit_ProviderOrder(t *testing.T) {
	j := &journal{}
	a, b, c := newProvider(j, "A"), newProvider(j, "B"), newProvider(j, "C")
	running(t, a, b, c)

	assert.Equal(t, []string{
		"A.Register", "B.Register", "C.Register",
		"A.Init", "B.Init", "C.Init",
	}, j.entries)
}

func TestInit_LaterProviderSeesEarlierServices(t *testing.T) {
	j := &journal{}
	a := newProvider(j, "A")
	a.register = func(app *foundation.Application) error {
		return app.Instance("greeting", "hello")
	}
	var seen string
	b := newProvider(j, "B")
	b.init = func(app *foundation.Application) error {
		v, err := container.Resolve[string](app.Container, "greeting")
		seen = v
		return err
	}

	running(t, a, b)
	assert.Equal(t, "hello", seen)
}

func TestRegister_DuringIniting(t *testing.T) {
	j := &journal{}
	late := newProvider(j, "late")
	var registerErr error
	p := newProvider(j, "P")
	p.init = func(app *foundation.Application) error {
		registerErr = app.Register(late)
		return nil
	}

	app := running(t, p)

	assert.True(t, exception.IsLogic(registerErr), "got %v", registerErr)
	assert.Equal(t, []foundation.ServiceProvider{p}, app.Providers())
	assert.Zero(t, j.count("late.Register"))
}

func TestForceRegister_DuringInitingLeavesListUnchanged(t *testing.T) {
	j := &journal{}
	var registerErr error
	p := newProvider(j, "P")
	p.init = func(app *foundation.Application) error {
		registerErr = app.ForceRegister(p)
		return nil
	}

	app := running(t, p)

	assert.True(t, exception.IsLogic(registerErr))
	assert.Equal(t, []foundation.ServiceProvider{p}, app.Providers())
}

func TestRegister_AfterInit_InitializesImmediately(t *testing.T) {
	app := running(t)
	j := &journal{}
	y := newProvider(j, "Y")

	require.NoError(t, app.Register(y))
	assert.Equal(t, []string{"Y.Register", "Y.Init"}, j.entries)
	assert.True(t, app.IsRegistered(y))
}

func TestRegister_AfterTerminate(t *testing.T) {
	app := running(t)
	require.NoError(t, app.Terminate())

	err := app.Register(newProvider(&journal{}, "P"))
	assert.True(t, exception.IsLogic(err), "got %v", err)
}

func TestRegister_FromForeignGoroutine(t *testing.T) {
	app := foundation.New()
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		err = app.Register(newProvider(&journal{}, "P"))
	}()
	<-done

	assert.True(t, exception.IsLogic(err), "got %v", err)
	assert.Empty(t, app.Providers())
}

// ── container access during Register ──────────────────────────────────────────

func TestRegister_ResolutionRefused(t *testing.T) {
	app := foundation.New()
	require.NoError(t, app.Instance("svc", "value"))

	var makeErr, bindErr error
	p := newProvider(&journal{}, "P")
	p.register = func(app *foundation.Application) error {
		_, makeErr = app.Make("svc")
		bindErr = app.Singleton("mine", func(*container.Container) (any, error) { return 1, nil })
		return nil
	}
	require.NoError(t, app.Register(p))

	assert.True(t, exception.IsLogic(makeErr), "got %v", makeErr)
	assert.Equal(t, "Make", exception.Op(makeErr))
	assert.NoError(t, bindErr, "binding stays allowed during Register")

	v, err := app.Make("svc")
	require.NoError(t, err)
	assert.Equal(t, "value", v)
}

func TestRegister_FailureReleasesGuard(t *testing.T) {
	app := foundation.New()
	require.NoError(t, app.Instance("svc", "value"))
	boom := errors.New("boom")

	p := newProvider(&journal{}, "P")
	p.register = func(app *foundation.Application) error {
		if err := app.Instance("partial", 1); err != nil {
			return err
		}
		return boom
	}

	err := app.Register(p)
	assert.ErrorIs(t, err, boom)
	assert.False(t, app.IsRegistered(p))
	assert.True(t, app.Bound("partial"), "partial bindings are not rolled back")

	_, err = app.Make("svc")
	assert.NoError(t, err)
}

func TestRegister_PanicReleasesGuard(t *testing.T) {
	app := foundation.New()
	require.NoError(t, app.Instance("svc", "value"))

	p := newProvider(&journal{}, "P")
	p.register = func(*foundation.Application) error { panic("provider bug") }

	assert.Panics(t, func() { _ = app.Register(p) })
	_, err := app.Make("svc")
	assert.NoError(t, err)
}

func TestRegister_NestedRegistrationKeepsGuard(t *testing.T) {
	app := foundation.New()
	require.NoError(t, app.Instance("svc", "value"))

	var afterNested error
	inner := newProvider(&journal{}, "inner")
	outer := newProvider(&journal{}, "outer")
	outer.register = func(app *foundation.Application) error {
		if err := app.Register(inner); err != nil {
			return err
		}
		_, afterNested = app.Make("svc")
		return nil
	}

	require.NoError(t, app.Register(outer))
	assert.True(t, exception.IsLogic(afterNested), "guard must still hold after a nested Register")
	assert.Equal(t, []foundation.ServiceProvider{inner, outer}, app.Providers())
}

// ── Init failures ─────────────────────────────────────────────────────────────

func TestInit_ProviderFailure(t *testing.T) {
	boom := errors.New("boom")
	p := newProvider(&journal{}, "P")
	p.init = func(*foundation.Application) error { return boom }

	app := foundation.New()
	require.NoError(t, app.Bootstrap())
	require.NoError(t, app.Register(p))

	err := app.Init()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, foundation.Initing, app.Process())
	assert.True(t, exception.IsLogic(app.Init()), "Init must not be retried")
}

// ── termination ───────────────────────────────────────────────────────────────

func TestTerminate_FlushesContainer(t *testing.T) {
	p := newProvider(&journal{}, "P")
	p.register = func(app *foundation.Application) error {
		return app.Singleton("svc", func(*container.Container) (any, error) { return "v", nil })
	}
	app := running(t, p)
	_, err := app.Make("svc")
	require.NoError(t, err)

	require.NoError(t, app.Terminate())

	assert.Equal(t, foundation.Terminated, app.Process())
	_, err = app.Make("svc")
	assert.ErrorIs(t, err, container.ErrNotBound)
	assert.Empty(t, app.Bindings())
}

func TestTerminate_Twice(t *testing.T) {
	app := running(t)
	require.NoError(t, app.Terminate())
	assert.True(t, exception.IsLogic(app.Terminate()))
}

func TestTerminate_FromConstruct(t *testing.T) {
	app := foundation.New()
	require.NoError(t, app.Terminate())
	assert.Equal(t, foundation.Terminated, app.Process())
}

func TestTerminate_RunsHooks(t *testing.T) {
	app := running(t)
	var phase foundation.StartProcess
	app.OnTerminate(func(a *foundation.Application) { phase = a.Process() })

	require.NoError(t, app.Terminate())
	assert.Equal(t, foundation.Terminating, phase)
}

// ── runtime ids ───────────────────────────────────────────────────────────────

func TestNextRuntimeID_Concurrent(t *testing.T) {
	app := foundation.New()
	const workers, perWorker = 16, 250

	var mu sync.Mutex
	var ids []int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			last := int64(0)
			for i := 0; i < perWorker; i++ {
				id := app.NextRuntimeID()
				assert.Greater(t, id, last, "ids observed by one goroutine must increase")
				last = id
				local = append(local, id)
			}
			mu.Lock()
			ids = append(ids, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	require.Len(t, ids, workers*perWorker)
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}
}

// ── lifecycle events ──────────────────────────────────────────────────────────

func TestEvents_Sequence(t *testing.T) {
	d := events.NewEventDispatcher()
	var names []string
	d.Listen("app.*", func(_, payload any) {
		ev := payload.(foundation.Event)
		names = append(names, ev.Kind().String())
	})

	app := foundation.New(foundation.WithDispatcher(d))
	p := newProvider(&journal{}, "P")
	require.NoError(t, app.Bootstrap(&stubBootstrap{name: "b", journal: &journal{}, boot: func(app *foundation.Application) error {
		return app.Register(p)
	}}))
	require.NoError(t, app.Init())
	require.NoError(t, app.Terminate())

	assert.Equal(t, []string{
		foundation.OnBeforeBoot,
		foundation.OnBooting,
		foundation.OnRegisterProvider,
		foundation.OnAfterBoot,
		foundation.OnBeforeInit,
		foundation.OnInitProvider,
		foundation.OnAfterInit,
		foundation.OnStartCompleted,
		foundation.OnBeforeTerminate,
		foundation.OnAfterTerminate,
	}, names)
}

func TestEvents_SenderAndPhase(t *testing.T) {
	d := events.NewEventDispatcher()
	app := foundation.New(foundation.WithDispatcher(d))

	var phases []foundation.StartProcess
	for _, name := range []string{foundation.OnBeforeInit, foundation.OnAfterInit, foundation.OnStartCompleted} {
		d.Listen(name, func(sender, payload any) {
			assert.Same(t, app, sender)
			assert.Same(t, app, payload.(foundation.Event).Application())
			phases = append(phases, app.Process())
		})
	}

	require.NoError(t, app.Bootstrap())
	require.NoError(t, app.Init())
	assert.Equal(t, []foundation.StartProcess{foundation.Init, foundation.Inited, foundation.Running}, phases)
}

func TestEvents_BeforeBootReplacesList(t *testing.T) {
	d := events.NewEventDispatcher()
	j := &journal{}
	replacement := &stubBootstrap{name: "replacement", journal: j}
	d.Listen(foundation.OnBeforeBoot, func(_, payload any) {
		ev := payload.(*foundation.BeforeBootEvent)
		assert.Len(t, ev.Bootstrappers(), 1)
		ev.SetBootstrappers(replacement)
	})

	app := foundation.New(foundation.WithDispatcher(d))
	require.NoError(t, app.Bootstrap(&stubBootstrap{name: "original", journal: j}))
	assert.Equal(t, []string{"replacement.Bootstrap"}, j.entries)
}

func TestEvents_BootingSkip(t *testing.T) {
	d := events.NewEventDispatcher()
	j := &journal{}
	skipped := &stubBootstrap{name: "skipped", journal: j}
	d.Listen(foundation.OnBooting, func(_, payload any) {
		ev := payload.(*foundation.BootingEvent)
		if ev.Bootstrapper == skipped {
			ev.Skip()
		}
	})

	app := foundation.New(foundation.WithDispatcher(d))
	require.NoError(t, app.Bootstrap(skipped, &stubBootstrap{name: "kept", journal: j}))
	assert.Equal(t, []string{"kept.Bootstrap"}, j.entries)
	assert.Equal(t, foundation.Bootstrapped, app.Process())
}

func TestEvents_RegisterProviderSkip(t *testing.T) {
	d := events.NewEventDispatcher()
	d.Listen(foundation.OnRegisterProvider, func(_, payload any) {
		payload.(*foundation.RegisterProviderEvent).Skip()
	})

	app := foundation.New(foundation.WithDispatcher(d))
	j := &journal{}
	p := newProvider(j, "P")
	require.NoError(t, app.Register(p))

	assert.Empty(t, j.entries)
	assert.False(t, app.IsRegistered(p))
}

func TestEvents_ForceRegisterSkipKeepsExisting(t *testing.T) {
	d := events.NewEventDispatcher()
	app := foundation.New(foundation.WithDispatcher(d))
	p := newProvider(&journal{}, "P")
	require.NoError(t, app.Register(p))

	d.Listen(foundation.OnRegisterProvider, func(_, payload any) {
		payload.(*foundation.RegisterProviderEvent).Skip()
	})
	require.NoError(t, app.ForceRegister(p))
	assert.True(t, app.IsRegistered(p))
}

func TestEvents_InitProviderPayload(t *testing.T) {
	d := events.NewEventDispatcher()
	var seen []foundation.ServiceProvider
	d.Listen(foundation.OnInitProvider, func(_, payload any) {
		seen = append(seen, payload.(*foundation.InitProviderEvent).Provider)
	})

	app := foundation.New(foundation.WithDispatcher(d))
	p := newProvider(&journal{}, "P")
	require.NoError(t, app.Bootstrap())
	require.NoError(t, app.Register(p))
	require.NoError(t, app.Init())

	assert.Equal(t, []foundation.ServiceProvider{p}, seen)
}

func TestEvents_NoDispatcher(t *testing.T) {
	app := foundation.New(foundation.WithDispatcher(nil))
	j := &journal{}

	require.NoError(t, app.Bootstrap(&stubBootstrap{name: "b", journal: j, boot: func(app *foundation.Application) error {
		return app.Register(newProvider(j, "P"))
	}}))
	require.NoError(t, app.Init())
	require.NoError(t, app.Terminate())

	assert.Equal(t, []string{"b.Bootstrap", "P.Register", "P.Init"}, j.entries)
	assert.Nil(t, app.Dispatcher())
}

// ── StartProcess / DebugLevel ─────────────────────────────────────────────────

func TestStartProcess_Order(t *testing.T) {
	order := []foundation.StartProcess{
		foundation.Construct, foundation.Bootstrap, foundation.Bootstrapping, foundation.Bootstrapped,
		foundation.Init, foundation.Initing, foundation.Inited, foundation.Running,
		foundation.Terminate, foundation.Terminating, foundation.Terminated,
	}
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1], order[i], "%s must precede %s", order[i-1], order[i])
	}
	assert.Equal(t, "Running", foundation.Running.String())
	assert.Equal(t, "StartProcess(42)", foundation.StartProcess(42).String())
}

func TestParseDebugLevel(t *testing.T) {
	tests := []struct {
		in   string
		want foundation.DebugLevel
		ok   bool
	}{
		{"production", foundation.Production, true},
		{"Staging", foundation.Staging, true},
		{" dev ", foundation.Development, true},
		{"verbose", foundation.Production, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := foundation.ParseDebugLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, err == nil)
		})
	}
}
