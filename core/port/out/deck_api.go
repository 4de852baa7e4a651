package out

import (
	"context"

	"taskdeck/core/domain"
)

// TodoAPI is the REST surface for todos. Implementations return
// apperr errors: network, application (success:false) or unauthorized.
type TodoAPI interface {
	ListTodos(ctx context.Context, filter domain.TodoFilter) ([]domain.Todo, error)
	CreateTodo(ctx context.Context, in *domain.CreateTodoInput) (*domain.Todo, error)
	UpdateTodo(ctx context.Context, id int64, in *domain.UpdateTodoInput) (*domain.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
	GetTodayView(ctx context.Context, filter domain.TodayFilter) (*domain.TodayView, error)
}

// AreaAPI is the REST surface for areas.
type AreaAPI interface {
	ListAreas(ctx context.Context) ([]domain.Area, error)
	CreateArea(ctx context.Context, in *domain.CreateAreaInput) (*domain.Area, error)
	UpdateArea(ctx context.Context, id int64, in *domain.UpdateAreaInput) (*domain.Area, error)
	DeleteArea(ctx context.Context, id int64) error
	GetAreaStats(ctx context.Context, id int64) (*domain.AreaStats, error)
	ListAreaColors(ctx context.Context) ([]domain.AreaColor, error)
}

// SessionAPI reads the current session.
type SessionAPI interface {
	GetSession(ctx context.Context) (*domain.Session, error)
}

// API bundles every REST port.
type API interface {
	TodoAPI
	AreaAPI
	SessionAPI
}
