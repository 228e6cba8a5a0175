package app

import (
	"sort"
	"sync"
	"time"
)

// Timer runs callbacks after a delay measured in loop time, not wall time:
// it only advances when LocalUpdate is called.
type Timer struct {
	mu      sync.Mutex
	nextID  func() int64
	elapsed time.Duration
	pending map[int64]*timeout
}

type timeout struct {
	id  int64
	due time.Duration
	fn  func()
}

// NewTimer creates a Timer drawing ids from nextID.
func NewTimer(nextID func() int64) *Timer {
	return &Timer{nextID: nextID, pending: make(map[int64]*timeout)}
}

// After schedules fn to run once delay of loop time has passed and returns
// an id for Cancel.
func (t *Timer) After(delay time.Duration, fn func()) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID()
	t.pending[id] = &timeout{id: id, due: t.elapsed + delay, fn: fn}
	return id
}

// Cancel removes a scheduled callback. It reports whether it was pending.
func (t *Timer) Cancel(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[id]
	delete(t.pending, id)
	return ok
}

// Pending returns the number of scheduled callbacks.
func (t *Timer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// LocalUpdate advances loop time and runs every due callback, earliest
// first. Callbacks run without the lock held and may schedule more work.
func (t *Timer) LocalUpdate(delta time.Duration) {
	t.mu.Lock()
	t.elapsed += delta
	var due []*timeout
	for id, to := range t.pending {
		if to.due <= t.elapsed {
			due = append(due, to)
			delete(t.pending, id)
		}
	}
	t.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].due == due[j].due {
			return due[i].id < due[j].id
		}
		return due[i].due < due[j].due
	})
	for _, to := range due {
		to.fn()
	}
}
