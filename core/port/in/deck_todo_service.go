package in

import (
	"context"

	"taskdeck/core/domain"
	"taskdeck/core/service/cache"
)

// TodoService is what a tab session offers its surfaces: cached reads with
// display state applied and optimistic writes.
type TodoService interface {
	// === Todo reads ===
	ListTodos(ctx context.Context, filter domain.TodoFilter) ([]TodoView, error)
	TodayView(ctx context.Context, filter domain.TodayFilter) (*domain.TodayView, error)

	// === Todo writes ===
	CreateTodo(ctx context.Context, in domain.CreateTodoInput) (*domain.Todo, error)
	UpdateTodo(ctx context.Context, id int64, in domain.UpdateTodoInput) (*domain.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
	ToggleToday(ctx context.Context, id int64) (*domain.Todo, error)

	// === Deferred completion ===
	ToggleCompletion(ctx context.Context, id int64) (*CompletionState, error)
	PendingCompletions() []int64
	CleanupCompletions() int
}

// AreaService covers areas.
type AreaService interface {
	ListAreas(ctx context.Context) ([]AreaView, error)
	CreateArea(ctx context.Context, in domain.CreateAreaInput) (*domain.Area, error)
	UpdateArea(ctx context.Context, id int64, in domain.UpdateAreaInput) (*domain.Area, error)
	DeleteArea(ctx context.Context, id int64) error
	AreaStats(ctx context.Context, id int64) (*domain.AreaStats, error)
	AreaColors(ctx context.Context) ([]domain.AreaColor, error)
}

// SessionService covers the session and cache diagnostics.
type SessionService interface {
	Session(ctx context.Context) (*domain.Session, error)
	CacheEntries() []cache.EntryInfo
	HandleAuthFailure()
}

// =============================================================================
// View Types
// =============================================================================

// TodoView is a todo as displayed: completion reflects a pending toggle and
// unconfirmed writes are marked.
type TodoView struct {
	domain.Todo
	PendingAction     domain.PendingAction `json:"pending_action,omitempty"`
	CompletionPending bool                 `json:"completion_pending,omitempty"`
}

// AreaView is an area as displayed.
type AreaView struct {
	domain.Area
	PendingAction domain.PendingAction `json:"pending_action,omitempty"`
}

// CompletionState is the result of a completion toggle.
type CompletionState struct {
	ID        int64 `json:"id"`
	Pending   bool  `json:"pending"`
	Completed bool  `json:"completed"` // display state
}
