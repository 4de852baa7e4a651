// Package completion delays completion toggles behind an undo window. A
// toggle only reaches the API when the window elapses without a second
// toggle of the same todo.
package completion

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskdeck/core/domain"
	"taskdeck/core/port/out"
	"taskdeck/core/service/cache"
	"taskdeck/pkg/apperr"
	"taskdeck/pkg/metrics"
	"taskdeck/pkg/schedule"

	"github.com/rs/zerolog"
)

// Completion resolutions
const (
	ResolutionCommitted = "committed"
	ResolutionUndone    = "undone"
	ResolutionCleanedUp = "cleaned_up"
)

// Config holds undo window settings.
type Config struct {
	UndoTimeout time.Duration
	ToastLead   time.Duration // toast hides this long before the commit
}

// DefaultConfig returns the default undo window.
func DefaultConfig() Config {
	return Config{
		UndoTimeout: 1500 * time.Millisecond,
		ToastLead:   200 * time.Millisecond,
	}
}

// ToastDuration is UndoTimeout - ToastLead clamped to [0, UndoTimeout].
func (c Config) ToastDuration() time.Duration {
	d := c.UndoTimeout - c.ToastLead
	if d < 0 {
		return 0
	}
	if d > c.UndoTimeout {
		return c.UndoTimeout
	}
	return d
}

// Updater commits a todo patch (the mutation engine).
type Updater interface {
	UpdateTodo(ctx context.Context, id int64, in domain.UpdateTodoInput) (*domain.Todo, error)
}

// Invalidator marks cache kinds stale.
type Invalidator interface {
	Invalidate(kinds ...cache.Kind)
}

type record struct {
	original bool
	handle   schedule.Handle
	toastID  string
}

// Controller tracks pending completion records, one per todo id.
type Controller struct {
	mu      sync.Mutex
	records map[int64]*record

	updater     Updater
	invalidator Invalidator
	notifier    out.Notifier
	sched       schedule.Scheduler
	cfg         Config
	log         zerolog.Logger

	inflight sync.WaitGroup
}

// NewController creates a completion controller.
func NewController(
	updater Updater,
	invalidator Invalidator,
	notifier out.Notifier,
	sched schedule.Scheduler,
	cfg Config,
	log zerolog.Logger,
) *Controller {
	if cfg.UndoTimeout <= 0 {
		cfg.UndoTimeout = DefaultConfig().UndoTimeout
	}
	if cfg.ToastLead < 0 {
		cfg.ToastLead = 0
	}
	return &Controller{
		records:     make(map[int64]*record),
		updater:     updater,
		invalidator: invalidator,
		notifier:    notifier,
		sched:       sched,
		cfg:         cfg,
		log:         log.With().Str("component", "completion_controller").Logger(),
	}
}

// =============================================================================
// Toggle / Cancel
// =============================================================================

// Toggle starts an undo window for todo, or cancels the running one. It
// reports whether a completion is pending afterwards.
func (c *Controller) Toggle(todo domain.Todo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.records[todo.ID]; ok {
		c.cancelLocked(todo.ID, rec)
		metrics.RecordCompletion(ResolutionUndone)
		c.log.Debug().Int64("todo_id", todo.ID).Msg("completion undone")
		return false
	}

	id := todo.ID
	rec := &record{original: todo.Completed}
	c.records[id] = rec
	rec.handle = c.sched.AfterFunc(c.cfg.UndoTimeout, func() {
		c.commit(id, rec)
	})

	message := "Todo completed"
	if todo.Completed {
		message = "Todo reopened"
	}
	rec.toastID = c.notifier.Show(domain.Toast{
		Message:  message,
		Type:     domain.ToastSuccess,
		Duration: c.cfg.ToastDuration(),
		Action: &domain.ToastAction{
			Label:   "Undo",
			OnClick: func() { c.Cancel(id) },
		},
	})

	metrics.SetPendingCompletions(len(c.records))
	c.log.Debug().Int64("todo_id", id).Bool("completed", !todo.Completed).Msg("completion pending")
	return true
}

// Cancel undoes a pending completion. It reports whether one existed.
func (c *Controller) Cancel(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[id]
	if !ok {
		return false
	}
	c.cancelLocked(id, rec)
	metrics.RecordCompletion(ResolutionUndone)
	return true
}

// cancelLocked drops the record without any network call. Caller holds c.mu.
func (c *Controller) cancelLocked(id int64, rec *record) {
	rec.handle.Cancel()
	c.notifier.Hide(rec.toastID)
	delete(c.records, id)
	metrics.SetPendingCompletions(len(c.records))
}

// =============================================================================
// Commit
// =============================================================================

// commit runs when the undo window of rec elapses.
func (c *Controller) commit(id int64, rec *record) {
	c.mu.Lock()
	// 취소된 타이머가 이미 실행 중이었을 수 있음 → 같은 레코드인지 확인
	if cur, ok := c.records[id]; !ok || cur != rec {
		c.mu.Unlock()
		return
	}
	delete(c.records, id)
	c.notifier.Hide(rec.toastID)
	metrics.SetPendingCompletions(len(c.records))
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	metrics.RecordCompletion(ResolutionCommitted)
	completed := !rec.original
	_, err := c.updater.UpdateTodo(context.Background(), id, domain.UpdateTodoInput{Completed: &completed})
	if err == nil {
		return
	}
	if apperr.IsAuth(err) {
		return
	}
	c.log.Warn().Err(err).Int64("todo_id", id).Msg("completion commit failed")
	c.invalidator.Invalidate(cache.KindTodos)
}

// Wait blocks until running commits have finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// WaitTimeout is Wait bounded by d. It reports whether every running commit
// finished in time; on false the commits keep running in the background.
func (c *Controller) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// =============================================================================
// Display state
// =============================================================================

// IsPending reports whether id has a pending completion.
func (c *Controller) IsPending(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.records[id]
	return ok
}

// DisplayCompleted is the completion state to show for todo.
func (c *Controller) DisplayCompleted(todo domain.Todo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.records[todo.ID]; ok {
		return !rec.original
	}
	return todo.Completed
}

// Display returns a copy of todos with the display completion state applied.
func (c *Controller) Display(todos []domain.Todo) []domain.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()

	display := make([]domain.Todo, len(todos))
	copy(display, todos)
	if len(c.records) == 0 {
		return display
	}
	for i := range display {
		if rec, ok := c.records[display[i].ID]; ok {
			display[i].Completed = !rec.original
		}
	}
	return display
}

// PendingIDs lists todo ids with a pending completion, ascending.
func (c *Controller) PendingIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasPendingCompletions reports whether any completion is pending.
func (c *Controller) HasPendingCompletions() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records) > 0
}

// =============================================================================
// Cleanup
// =============================================================================

// Cleanup cancels every pending completion: timers are canceled, toasts
// hidden, and nothing is committed afterwards. It returns how many were
// dropped.
func (c *Controller) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.records)
	for id, rec := range c.records {
		rec.handle.Cancel()
		c.notifier.Hide(rec.toastID)
		delete(c.records, id)
		metrics.RecordCompletion(ResolutionCleanedUp)
	}
	metrics.SetPendingCompletions(0)
	if n > 0 {
		c.log.Info().Int("count", n).Msg("pending completions cleaned up")
	}
	return n
}
