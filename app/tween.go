package app

import (
	"sync"
	"time"
)

// Tweens interpolates values linearly over loop time.
type Tweens struct {
	mu     sync.Mutex
	nextID func() int64
	active map[int64]*tween
}

type tween struct {
	from, to float64
	duration time.Duration
	elapsed  time.Duration
	update   func(v float64)
}

// NewTweens creates a tween manager drawing ids from nextID.
func NewTweens(nextID func() int64) *Tweens {
	return &Tweens{nextID: nextID, active: make(map[int64]*tween)}
}

// To animates from one value to another over duration, calling update with
// each intermediate value. The final call always receives to exactly. A
// non-positive duration completes on the next update.
func (m *Tweens) To(from, to float64, duration time.Duration, update func(v float64)) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID()
	m.active[id] = &tween{from: from, to: to, duration: duration, update: update}
	return id
}

// Kill stops a tween without a final update.
func (m *Tweens) Kill(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, id)
}

// Active returns the number of running tweens.
func (m *Tweens) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// LocalUpdate advances every tween by delta.
func (m *Tweens) LocalUpdate(delta time.Duration) {
	type step struct {
		update func(float64)
		value  float64
	}
	m.mu.Lock()
	steps := make([]step, 0, len(m.active))
	for id, tw := range m.active {
		tw.elapsed += delta
		if tw.elapsed >= tw.duration {
			steps = append(steps, step{tw.update, tw.to})
			delete(m.active, id)
			continue
		}
		progress := float64(tw.elapsed) / float64(tw.duration)
		steps = append(steps, step{tw.update, tw.from + (tw.to-tw.from)*progress})
	}
	m.mu.Unlock()

	for _, s := range steps {
		s.update(s.value)
	}
}
