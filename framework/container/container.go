package container

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/km-arc/go-uframework/framework/exception"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory builds a concrete value from the container.
type Factory func(c *Container) (any, error)

// Extender wraps an already-built instance with decorator logic.
type Extender func(instance any, c *Container) (any, error)

// Guard is a construction precondition. It receives the name of the container
// method about to build an instance and returns a non-nil error to refuse it.
type Guard func(method string) error

// binding holds a registered factory and whether it is a singleton.
type binding struct {
	factory   Factory
	singleton bool
}

var (
	// ErrNotBound is wrapped by every resolution of an abstract with no binding.
	ErrNotBound = errors.New("container: no binding registered")

	// ErrTypeMismatch is wrapped by Resolve when the instance is not a T.
	ErrTypeMismatch = errors.New("container: resolved instance has unexpected type")
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container maps abstract keys to bindings and resolved singleton instances.
//
// It supports:
//   - Bind / Singleton / Instance / Alias
//   - Make / Resolve (generic)
//   - Tags (group multiple abstractions under one tag)
//   - Extend (decorate resolved instances)
//   - Rebound and after-resolving callbacks
//   - Guards (veto construction, see GuardConstruct)
type Container struct {
	mu sync.RWMutex

	// abstract → binding
	bindings map[string]*binding

	// abstract → resolved singleton instance
	instances map[string]any

	// alias → abstract (canonical key)
	aliases map[string]string

	// abstract → extender funcs
	extenders map[string][]Extender

	// tag → []abstract
	tags map[string][]string

	// abstract → rebound callbacks
	reboundCallbacks map[string][]func(any)

	afterResolving []func(string, any)

	// guards survive Flush: they belong to the owner, not to the bindings
	guards []Guard
}

// New creates an empty container bound to itself under "container".
func New() *Container {
	c := &Container{}
	c.reset()
	c.instances["container"] = c
	return c
}

func (c *Container) reset() {
	c.bindings = make(map[string]*binding)
	c.instances = make(map[string]any)
	c.aliases = make(map[string]string)
	c.extenders = make(map[string][]Extender)
	c.tags = make(map[string][]string)
	c.reboundCallbacks = make(map[string][]func(any))
	c.afterResolving = nil
}

// ── Guards ────────────────────────────────────────────────────────────────────

// OnGuard adds a construction guard. Guards run in the order they were added.
func (c *Container) OnGuard(g Guard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guards = append(c.guards, g)
}

// GuardConstruct runs every guard for method and returns the first refusal.
// Every operation that materializes an instance calls it first.
func (c *Container) GuardConstruct(method string) error {
	c.mu.RLock()
	guards := c.guards
	c.mu.RUnlock()
	for _, g := range guards {
		if err := g(method); err != nil {
			return err
		}
	}
	return nil
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient factory: every Make builds a new instance.
//
//	c.Bind("clock", func(c *container.Container) (any, error) {
//	    return time.Now, nil
//	})
func (c *Container) Bind(abstract string, factory Factory) error {
	return c.bind("Bind", abstract, factory, false)
}

// Singleton registers a factory whose result is cached after first resolution.
//
//	c.Singleton("input", func(c *container.Container) (any, error) {
//	    return input.NewManager(), nil
//	})
func (c *Container) Singleton(abstract string, factory Factory) error {
	return c.bind("Singleton", abstract, factory, true)
}

// Instance registers a pre-built value as a singleton.
func (c *Container) Instance(abstract string, instance any) error {
	if abstract == "" {
		return exception.Argument("Instance", "abstract can not be empty")
	}
	c.mu.Lock()
	key := c.canonical(abstract)
	rebinding := c.isBound(key)
	delete(c.bindings, key)
	c.instances[key] = instance
	c.mu.Unlock()

	if rebinding {
		c.fireRebound(key, instance)
	}
	return nil
}

func (c *Container) bind(op, abstract string, factory Factory, singleton bool) error {
	if abstract == "" {
		return exception.Argument(op, "abstract can not be empty")
	}
	if factory == nil {
		return exception.Argument(op, "factory for [%s] can not be nil", abstract)
	}

	c.mu.RLock()
	key := c.canonical(abstract)
	_, wasResolved := c.instances[key]
	rebuild := wasResolved && len(c.reboundCallbacks[key]) > 0
	c.mu.RUnlock()

	// a rebind that must rebuild is refused before anything changes
	if rebuild {
		if err := c.GuardConstruct(op); err != nil {
			return err
		}
	}

	c.mu.Lock()
	// Drop the existing instance so it's rebuilt with the new factory
	delete(c.instances, key)
	c.bindings[key] = &binding{factory: factory, singleton: singleton}
	c.mu.Unlock()

	if rebuild {
		instance, err := c.make(key)
		if err != nil {
			return err
		}
		c.fireRebound(key, instance)
	}
	return nil
}

// Alias registers an alternative name for an abstract.
func (c *Container) Alias(abstract, alias string) error {
	if abstract == alias {
		return exception.Logic("Alias", "[%s] is aliased to itself", abstract)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[alias] = c.canonical(abstract)
	return nil
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates the resolved instance of an abstract. When the abstract is
// already resolved as a singleton the cached instance is decorated at once.
func (c *Container) Extend(abstract string, fn Extender) error {
	if fn == nil {
		return exception.Argument("Extend", "extender for [%s] can not be nil", abstract)
	}

	c.mu.RLock()
	key := c.canonical(abstract)
	_, resolved := c.instances[key]
	c.mu.RUnlock()

	// a refused Extend leaves no extender behind
	if resolved {
		if err := c.GuardConstruct("Extend"); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.extenders[key] = append(c.extenders[key], fn)
	inst, resolved := c.instances[key]
	c.mu.Unlock()

	if !resolved {
		return nil
	}
	extended, err := fn(inst, c)
	if err != nil {
		return fmt.Errorf("container: extend [%s]: %w", abstract, err)
	}
	c.mu.Lock()
	c.instances[key] = extended
	c.mu.Unlock()
	c.fireRebound(key, extended)
	return nil
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple abstracts under a named group.
//
//	c.Tag([]string{"timer", "tween"}, loop.TagUpdatable)
func (c *Container) Tag(abstracts []string, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], abstracts...)
}

// Tagged resolves all abstracts registered under a tag, in tagging order.
func (c *Container) Tagged(tag string) ([]any, error) {
	if err := c.GuardConstruct("Tagged"); err != nil {
		return nil, err
	}

	c.mu.RLock()
	abstracts := append([]string(nil), c.tags[tag]...)
	c.mu.RUnlock()

	result := make([]any, 0, len(abstracts))
	for _, abs := range abstracts {
		inst, err := c.make(abs)
		if err != nil {
			return nil, err
		}
		result = append(result, inst)
	}
	return result, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Make resolves an abstract from the container.
//
//	timer, err := c.Make("timer")
func (c *Container) Make(abstract string) (any, error) {
	if err := c.GuardConstruct("Make"); err != nil {
		return nil, err
	}
	return c.make(abstract)
}

// make is the internal resolver (no outer lock; factories may call Make).
func (c *Container) make(abstract string) (any, error) {
	c.mu.RLock()
	key := c.canonical(abstract)
	if inst, ok := c.instances[key]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	b, ok := c.bindings[key]
	exts := c.extenders[key]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: [%s]", ErrNotBound, abstract)
	}

	instance, err := b.factory(c)
	if err != nil {
		return nil, fmt.Errorf("container: build [%s]: %w", abstract, err)
	}
	for _, ext := range exts {
		if instance, err = ext(instance, c); err != nil {
			return nil, fmt.Errorf("container: extend [%s]: %w", abstract, err)
		}
	}

	if b.singleton {
		c.mu.Lock()
		// first materialization wins if a factory resolved itself recursively
		if existing, ok := c.instances[key]; ok {
			instance = existing
		} else {
			c.instances[key] = instance
		}
		c.mu.Unlock()
	}

	c.fireAfterResolving(key, instance)
	return instance, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound returns true if an abstract has a binding or an instance.
func (c *Container) Bound(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isBound(c.canonical(abstract))
}

func (c *Container) isBound(key string) bool {
	_, hasBinding := c.bindings[key]
	_, hasInstance := c.instances[key]
	return hasBinding || hasInstance
}

// Resolved returns true if the abstract holds a cached instance.
func (c *Container) Resolved(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[c.canonical(abstract)]
	return ok
}

// Forget removes all registrations for an abstract (binding + instance).
func (c *Container) Forget(abstract string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonical(abstract)
	delete(c.bindings, key)
	delete(c.instances, key)
	delete(c.extenders, key)
}

// Flush drops every binding, instance, alias, tag and callback. Guards are
// kept. Calling Flush on an empty container is a no-op.
func (c *Container) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Bindings returns the sorted abstract keys that are bound or resolved.
func (c *Container) Bindings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings)+len(c.instances))
	for k := range c.bindings {
		out = append(out, k)
	}
	for k := range c.instances {
		if _, already := c.bindings[k]; !already {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// canonical resolves an alias to its canonical key (caller holds mu).
func (c *Container) canonical(abstract string) string {
	if target, ok := c.aliases[abstract]; ok {
		return target
	}
	return abstract
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// Rebinding registers a callback fired whenever an already bound abstract is
// bound again.
func (c *Container) Rebinding(abstract string, cb func(any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonical(abstract)
	c.reboundCallbacks[key] = append(c.reboundCallbacks[key], cb)
}

// AfterResolving registers a callback fired after any factory-built instance.
func (c *Container) AfterResolving(cb func(abstract string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireRebound(key string, instance any) {
	c.mu.RLock()
	cbs := c.reboundCallbacks[key]
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
}

func (c *Container) fireAfterResolving(key string, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(key, instance)
	}
}

// ── Type keys ─────────────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, useful as a stable
// abstract key when working with interfaces.
//
//	key := container.TypeKey((*TweenManager)(nil))  // "game/tween.TweenManager"
func TypeKey(v any) string {
	return typeKey(reflect.TypeOf(v))
}

// KeyOf returns the abstract key for T without needing a value.
//
//	container.KeyOf[*input.Manager]() == container.KeyOf[input.Manager]()
func KeyOf[T any]() string {
	return typeKey(reflect.TypeOf((*T)(nil)).Elem())
}

func typeKey(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve calls Make and type-asserts the result.
//
//	timer, err := container.Resolve[*Timer](c, "timer")
func Resolve[T any](c *Container, abstract string) (T, error) {
	var zero T
	instance, err := c.Make(abstract)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%w: [%s] resolved to %T, want %T", ErrTypeMismatch, abstract, instance, zero)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](c *Container, abstract string) T {
	typed, err := Resolve[T](c, abstract)
	if err != nil {
		panic(err)
	}
	return typed
}

// SingletonOf binds a typed singleton factory under KeyOf[T].
//
//	container.SingletonOf(c, func(*container.Container) (*input.Manager, error) {
//	    return input.NewManager(), nil
//	})
func SingletonOf[T any](c *Container, factory func(c *Container) (T, error)) error {
	if factory == nil {
		return exception.Argument("SingletonOf", "factory for [%s] can not be nil", KeyOf[T]())
	}
	return c.Singleton(KeyOf[T](), func(c *Container) (any, error) {
		return factory(c)
	})
}

// InstanceOf binds a pre-built value under KeyOf[T].
func InstanceOf[T any](c *Container, instance T) error {
	return c.Instance(KeyOf[T](), instance)
}

// ResolveOf resolves the value bound under KeyOf[T].
func ResolveOf[T any](c *Container) (T, error) {
	return Resolve[T](c, KeyOf[T]())
}
