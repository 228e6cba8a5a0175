// Package container provides the binding/resolution store that backs an
// Application.
//
// # Overview
//
// The container maps an abstract key (a string, or a type-derived key from
// KeyOf) to either a factory or a pre-built instance. There is no
// auto-wiring: every binding is an explicit factory function.
//
// # Bindings
//
//	// Transient: new instance every Make()
//	c.Bind("clock", func(c *container.Container) (any, error) { return &Clock{}, nil })
//
//	// Singleton: created once on first Make(), reused afterwards
//	c.Singleton("tween", func(c *container.Container) (any, error) {
//	    return tween.NewManager(), nil
//	})
//
//	// Pre-built value
//	c.Instance("config", cfg)
//
//	// Alias
//	c.Alias("tween", "tweens")
//
// # Resolving
//
//	raw, err := c.Make("tween")
//	mgr, err := container.Resolve[*tween.Manager](c, "tween")
//
// Resolving an abstract with no binding wraps ErrNotBound.
//
// # Guards
//
// Every operation that builds or decorates an instance first calls
// GuardConstruct with its own name. Owners add refusals with OnGuard; the
// Application uses this to forbid resolution while a service provider is
// inside Register:
//
//	c.OnGuard(func(method string) error {
//	    if registering {
//	        return exception.Logic(method, "no container access during Register")
//	    }
//	    return nil
//	})
//
// # Tags
//
//	c.Tag([]string{"timer", "tween"}, "updatable")
//	all, err := c.Tagged("updatable")
//
// # Extend / Decorate
//
//	c.Extend("logger", func(instance any, c *container.Container) (any, error) {
//	    return &TimestampLogger{Inner: instance.(*Logger)}, nil
//	})
//
// # Flush
//
// Flush drops every binding and cached instance; resolutions afterwards fail
// with ErrNotBound. Guards survive a Flush.
package container
