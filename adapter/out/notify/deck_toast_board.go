// Package notify implements the toast surface of a tab session.
package notify

import (
	"sync"

	"taskdeck/core/domain"
	"taskdeck/core/port/out"
	"taskdeck/pkg/apperr"
	"taskdeck/pkg/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxVisible caps the number of toasts on the board.
const DefaultMaxVisible = 5

var _ out.Notifier = (*Board)(nil)

type boardEntry struct {
	view   domain.ToastView
	action *domain.ToastAction
	expiry schedule.Handle
}

// Board keeps the visible toasts in show order and expires them.
type Board struct {
	mu         sync.Mutex
	entries    map[string]*boardEntry
	order      []string
	maxVisible int

	sched schedule.Scheduler
	log   zerolog.Logger
}

// NewBoard creates a board. maxVisible <= 0 selects DefaultMaxVisible.
func NewBoard(sched schedule.Scheduler, maxVisible int, log zerolog.Logger) *Board {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	return &Board{
		entries:    make(map[string]*boardEntry),
		maxVisible: maxVisible,
		sched:      sched,
		log:        log.With().Str("component", "toast_board").Logger(),
	}
}

// Show adds a toast and returns its id. The oldest toast is dropped when the
// board is full.
func (b *Board) Show(toast domain.Toast) string {
	id := uuid.NewString()
	now := b.sched.Now()

	entry := &boardEntry{
		view: domain.ToastView{
			ID:        id,
			Message:   toast.Message,
			Type:      toast.Type,
			CreatedAt: now,
		},
		action: toast.Action,
	}
	if toast.Action != nil {
		entry.view.ActionLabel = toast.Action.Label
	}
	if toast.Duration > 0 {
		expiresAt := now.Add(toast.Duration)
		entry.view.ExpiresAt = &expiresAt
	}

	b.mu.Lock()
	b.entries[id] = entry
	b.order = append(b.order, id)
	for len(b.order) > b.maxVisible {
		b.removeLocked(b.order[0])
	}
	if toast.Duration > 0 {
		entry.expiry = b.sched.AfterFunc(toast.Duration, func() { b.Hide(id) })
	}
	b.mu.Unlock()

	b.logToast(toast)
	return id
}

// Hide removes a toast. Unknown ids are ignored.
func (b *Board) Hide(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id)
}

// List returns the visible toasts, oldest first.
func (b *Board) List() []domain.ToastView {
	b.mu.Lock()
	defer b.mu.Unlock()

	views := make([]domain.ToastView, 0, len(b.order))
	for _, id := range b.order {
		views = append(views, b.entries[id].view)
	}
	return views
}

// Action clicks the action button of a toast and dismisses it.
func (b *Board) Action(id string) error {
	b.mu.Lock()
	entry, ok := b.entries[id]
	if !ok {
		b.mu.Unlock()
		return apperr.NotFound("toast")
	}
	if entry.action == nil || entry.action.OnClick == nil {
		b.mu.Unlock()
		return apperr.BadRequest("toast has no action")
	}
	onClick := entry.action.OnClick
	b.removeLocked(id)
	b.mu.Unlock()

	// 락 밖에서 호출 → OnClick 안에서 Hide 가능
	onClick()
	return nil
}

func (b *Board) removeLocked(id string) {
	entry, ok := b.entries[id]
	if !ok {
		return
	}
	if entry.expiry != nil {
		entry.expiry.Cancel()
	}
	delete(b.entries, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *Board) logToast(toast domain.Toast) {
	event := b.log.Info()
	switch toast.Type {
	case domain.ToastError:
		event = b.log.Error()
	case domain.ToastWarning:
		event = b.log.Warn()
	}
	event.Str("type", string(toast.Type)).Dur("duration", toast.Duration).Msg(toast.Message)
}
