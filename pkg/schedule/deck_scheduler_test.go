package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManual_RunsDueTasksInOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []int

	m.AfterFunc(300*time.Millisecond, func() { order = append(order, 3) })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, 1) })
	m.AfterFunc(200*time.Millisecond, func() { order = append(order, 2) })

	m.Advance(250 * time.Millisecond)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected [1 2], got %v", order)
	}
	if m.Pending() != 1 {
		t.Errorf("expected 1 pending task, got %d", m.Pending())
	}

	m.Advance(100 * time.Millisecond)
	if len(order) != 3 {
		t.Fatalf("expected third task to run, got %v", order)
	}
}

func TestManual_CancelIsIdempotent(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ran := false
	h := m.AfterFunc(time.Second, func() { ran = true })

	if !h.Cancel() {
		t.Error("first cancel should report true")
	}
	if h.Cancel() {
		t.Error("second cancel should report false")
	}

	m.Advance(2 * time.Second)
	if ran {
		t.Error("canceled task must not run")
	}
}

func TestManual_CancelAfterFire(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	h := m.AfterFunc(time.Millisecond, func() {})
	m.Advance(time.Millisecond)

	if h.Cancel() {
		t.Error("cancel after fire should report false")
	}
}

func TestManual_NestedScheduling(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var fired []time.Duration
	start := m.Now()

	m.AfterFunc(100*time.Millisecond, func() {
		fired = append(fired, m.Now().Sub(start))
		m.AfterFunc(100*time.Millisecond, func() {
			fired = append(fired, m.Now().Sub(start))
		})
	})

	m.Advance(500 * time.Millisecond)
	if len(fired) != 2 || fired[0] != 100*time.Millisecond || fired[1] != 200*time.Millisecond {
		t.Errorf("unexpected fire times: %v", fired)
	}
	if got := m.Now().Sub(start); got != 500*time.Millisecond {
		t.Errorf("clock = %v, want 500ms", got)
	}
}

func TestSystem_CancelPreventsRun(t *testing.T) {
	var ran atomic.Bool
	h := NewSystem().AfterFunc(50*time.Millisecond, func() { ran.Store(true) })

	if !h.Cancel() {
		t.Fatal("expected cancel before fire to succeed")
	}
	if h.Cancel() {
		t.Error("second cancel should report false")
	}

	time.Sleep(100 * time.Millisecond)
	if ran.Load() {
		t.Error("canceled timer ran")
	}
}

func TestSystem_Fires(t *testing.T) {
	done := make(chan struct{})
	h := NewSystem().AfterFunc(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	if h.Cancel() {
		t.Error("cancel after fire should report false")
	}
}
