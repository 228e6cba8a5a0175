// Package loop drives per-tick updates of services resolved from a container.
//
// Services opt in by implementing Updatable and being tagged TagUpdatable:
//
//	app.Singleton("tween", factory)
//	app.Tag([]string{"tween"}, loop.TagUpdatable)
package loop

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"

	"github.com/km-arc/go-uframework/framework/exception"
)

// TagUpdatable is the container tag the loop resolves every tick.
const TagUpdatable = "loop.updatable"

// Updatable receives the time elapsed since the previous tick.
type Updatable interface {
	LocalUpdate(delta time.Duration)
}

// Resolver resolves tagged services; *container.Container implements it.
type Resolver interface {
	Tagged(tag string) ([]any, error)
}

// Loop calls LocalUpdate on every updatable service at a fixed interval.
type Loop struct {
	t        tomb.Tomb
	resolver Resolver
	interval time.Duration
	logger   zerolog.Logger

	startOnce sync.Once
	started   atomic.Bool
	ticks     atomic.Uint64
}

// New creates a stopped loop.
func New(resolver Resolver, interval time.Duration, logger zerolog.Logger) *Loop {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Loop{resolver: resolver, interval: interval, logger: logger}
}

// Start runs the loop on its own goroutine. Only the first call has an effect.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		l.started.Store(true)
		l.t.Go(l.run)
	})
}

func (l *Loop) run() error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := time.Now()
	l.logger.Debug().Dur("interval", l.interval).Msg("loop started")
	for {
		select {
		case <-l.t.Dying():
			l.logger.Debug().Uint64("ticks", l.ticks.Load()).Msg("loop stopped")
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			if err := l.Tick(delta); err != nil {
				l.logger.Error().Err(err).Msg("loop tick failed")
				return err
			}
		}
	}
}

// Tick forwards delta to every updatable service once. A tick refused by a
// container guard (a provider is registering) is skipped, not failed.
func (l *Loop) Tick(delta time.Duration) error {
	services, err := l.resolver.Tagged(TagUpdatable)
	if exception.IsLogic(err) {
		l.logger.Debug().Err(err).Msg("tick skipped")
		return nil
	}
	if err != nil {
		return err
	}
	for _, s := range services {
		u, ok := s.(Updatable)
		if !ok {
			return fmt.Errorf("loop: %T tagged %q does not implement Updatable", s, TagUpdatable)
		}
		u.LocalUpdate(delta)
	}
	l.ticks.Add(1)
	return nil
}

// Ticks returns the number of completed ticks.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// Dead is closed once a started loop has stopped.
func (l *Loop) Dead() <-chan struct{} { return l.t.Dead() }

// Stop stops the loop and returns the error that ended it, if any.
// Stopping a loop that never started is a no-op.
func (l *Loop) Stop() error {
	if !l.started.Load() {
		return nil
	}
	l.t.Kill(nil)
	return l.t.Wait()
}
