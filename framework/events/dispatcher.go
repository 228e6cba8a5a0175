// Package events provides a synchronous, name-keyed event dispatcher.
//
// Listeners run on the raising goroutine, in registration order, before Raise
// returns. Exact-name listeners run before wildcard listeners. A wildcard
// pattern ends in "*" and matches every event name sharing its prefix:
//
//	d.Listen("app.*", func(sender, payload any) { ... })
package events

import (
	"sort"
	"strings"
	"sync"
)

// Listener receives the sender and the payload of a raised event. Listeners
// communicate back to the raiser by mutating the payload (e.g. setting a skip
// flag).
type Listener func(sender any, payload any)

// Dispatcher is the pub/sub surface the Application raises lifecycle events on.
type Dispatcher interface {
	// Listen registers a listener for an event name or wildcard pattern.
	Listen(eventName string, listener Listener)

	// Raise delivers payload to every listener of eventName synchronously.
	Raise(eventName string, sender any, payload any)

	// HasListeners reports whether eventName has at least one listener.
	HasListeners(eventName string) bool

	// Forget removes every listener registered for eventName.
	Forget(eventName string)
}

// EventDispatcher is the default Dispatcher.
type EventDispatcher struct {
	mutex     sync.RWMutex
	listeners map[string][]Listener
	wildcards map[string][]Listener
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		listeners: make(map[string][]Listener),
		wildcards: make(map[string][]Listener),
	}
}

// Listen registers a listener for a specific event or wildcard pattern.
// A nil listener is ignored.
func (d *EventDispatcher) Listen(eventName string, listener Listener) {
	if listener == nil {
		return
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if isWildcard(eventName) {
		d.wildcards[eventName] = append(d.wildcards[eventName], listener)
	} else {
		d.listeners[eventName] = append(d.listeners[eventName], listener)
	}
}

// Raise dispatches an event to all registered listeners.
func (d *EventDispatcher) Raise(eventName string, sender any, payload any) {
	for _, listener := range d.GetListeners(eventName) {
		listener(sender, payload)
	}
}

// Forget removes the listeners registered under eventName exactly. Forgetting
// a plain name leaves wildcard patterns that match it in place; forget the
// pattern itself to drop those.
func (d *EventDispatcher) Forget(eventName string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if isWildcard(eventName) {
		delete(d.wildcards, eventName)
		return
	}
	delete(d.listeners, eventName)
}

// HasListeners checks if there are listeners for an event.
func (d *EventDispatcher) HasListeners(eventName string) bool {
	return len(d.GetListeners(eventName)) > 0
}

// GetListeners returns all listeners for an event: direct listeners first, then
// wildcard listeners ordered by pattern.
func (d *EventDispatcher) GetListeners(eventName string) []Listener {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var all []Listener
	all = append(all, d.listeners[eventName]...)

	patterns := make([]string, 0, len(d.wildcards))
	for pattern := range d.wildcards {
		if matchesWildcard(pattern, eventName) {
			patterns = append(patterns, pattern)
		}
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		all = append(all, d.wildcards[pattern]...)
	}
	return all
}

func isWildcard(eventName string) bool {
	return strings.HasSuffix(eventName, "*")
}

func matchesWildcard(pattern, eventName string) bool {
	if !isWildcard(pattern) {
		return false
	}
	return strings.HasPrefix(eventName, strings.TrimSuffix(pattern, "*"))
}
