// Package schedule provides cancelable delayed tasks.
//
// A Handle can be canceled any number of times; only the first call has an
// effect and it reports whether the task was stopped before it ran.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Handle is a scheduled task.
type Handle interface {
	// Cancel stops the task. It returns true if the task had not started yet.
	Cancel() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Handle
	Now() time.Time
}

// =============================================================================
// Real scheduler
// =============================================================================

// System schedules tasks on the runtime timer.
type System struct{}

// NewSystem returns the runtime-timer scheduler.
func NewSystem() System { return System{} }

func (System) Now() time.Time { return time.Now() }

func (System) AfterFunc(d time.Duration, fn func()) Handle {
	h := &timerHandle{}
	h.timer = time.AfterFunc(d, func() {
		if h.claim() {
			fn()
		}
	})
	return h
}

type timerHandle struct {
	mu    sync.Mutex
	timer *time.Timer
	done  bool
}

// claim marks the handle finished; false if it was already canceled or fired.
func (h *timerHandle) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return false
	}
	h.done = true
	return true
}

func (h *timerHandle) Cancel() bool {
	if !h.claim() {
		return false
	}
	h.timer.Stop()
	return true
}

// =============================================================================
// Manual scheduler (deterministic clock for tests and replays)
// =============================================================================

// Manual is a scheduler whose clock only moves on Advance. Due tasks run
// synchronously inside Advance, in deadline order.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	m    *Manual
	at   time.Time
	seq  int
	fn   func()
	done bool
}

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

func (t *manualTask) Cancel() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.m.remove(t)
	return true
}

// remove must be called with m.mu held.
func (m *Manual) remove(t *manualTask) {
	for i, task := range m.tasks {
		if task == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}

// Pending returns the number of tasks that have not run or been canceled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves the clock forward by d and runs every task that became due.
// Tasks scheduled by running tasks are honored if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.tasks, func(i, j int) bool {
			if m.tasks[i].at.Equal(m.tasks[j].at) {
				return m.tasks[i].seq < m.tasks[j].seq
			}
			return m.tasks[i].at.Before(m.tasks[j].at)
		})
		if len(m.tasks) == 0 || m.tasks[0].at.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		next := m.tasks[0]
		m.tasks = m.tasks[1:]
		next.done = true
		if next.at.After(m.now) {
			m.now = next.at
		}
		m.mu.Unlock()

		next.fn()
	}
}
