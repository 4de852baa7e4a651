package api

import (
	"context"
	"net/http"
	"strconv"

	"taskdeck/core/domain"
)

// =============================================================================
// Todos
// =============================================================================

func (c *Client) ListTodos(ctx context.Context, filter domain.TodoFilter) ([]domain.Todo, error) {
	todos, err := call[[]domain.Todo](ctx, c, "list todos", http.MethodGet, withQuery("/todos", filter.Descriptor()), nil)
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []domain.Todo{}
	}
	return todos, nil
}

func (c *Client) CreateTodo(ctx context.Context, in *domain.CreateTodoInput) (*domain.Todo, error) {
	const op = "create todo"
	todo, err := call[*domain.Todo](ctx, c, op, http.MethodPost, "/todos", in)
	return requireData(op, todo, err)
}

func (c *Client) UpdateTodo(ctx context.Context, id int64, in *domain.UpdateTodoInput) (*domain.Todo, error) {
	const op = "update todo"
	todo, err := call[*domain.Todo](ctx, c, op, http.MethodPut, "/todos/"+strconv.FormatInt(id, 10), in)
	return requireData(op, todo, err)
}

func (c *Client) DeleteTodo(ctx context.Context, id int64) error {
	_, err := call[any](ctx, c, "delete todo", http.MethodDelete, "/todos/"+strconv.FormatInt(id, 10), nil)
	return err
}

func (c *Client) GetTodayView(ctx context.Context, filter domain.TodayFilter) (*domain.TodayView, error) {
	const op = "load today"
	view, err := call[*domain.TodayView](ctx, c, op, http.MethodGet, withQuery("/todos/today", filter.Descriptor()), nil)
	return requireData(op, view, err)
}

// =============================================================================
// Areas
// =============================================================================

func (c *Client) ListAreas(ctx context.Context) ([]domain.Area, error) {
	areas, err := call[[]domain.Area](ctx, c, "list areas", http.MethodGet, "/areas", nil)
	if err != nil {
		return nil, err
	}
	if areas == nil {
		areas = []domain.Area{}
	}
	return areas, nil
}

func (c *Client) CreateArea(ctx context.Context, in *domain.CreateAreaInput) (*domain.Area, error) {
	const op = "create area"
	area, err := call[*domain.Area](ctx, c, op, http.MethodPost, "/areas", in)
	return requireData(op, area, err)
}

func (c *Client) UpdateArea(ctx context.Context, id int64, in *domain.UpdateAreaInput) (*domain.Area, error) {
	const op = "update area"
	area, err := call[*domain.Area](ctx, c, op, http.MethodPut, "/areas/"+strconv.FormatInt(id, 10), in)
	return requireData(op, area, err)
}

func (c *Client) DeleteArea(ctx context.Context, id int64) error {
	_, err := call[any](ctx, c, "delete area", http.MethodDelete, "/areas/"+strconv.FormatInt(id, 10), nil)
	return err
}

func (c *Client) GetAreaStats(ctx context.Context, id int64) (*domain.AreaStats, error) {
	const op = "load area stats"
	stats, err := call[*domain.AreaStats](ctx, c, op, http.MethodGet, "/areas/"+strconv.FormatInt(id, 10)+"/stats", nil)
	return requireData(op, stats, err)
}

func (c *Client) ListAreaColors(ctx context.Context) ([]domain.AreaColor, error) {
	return call[[]domain.AreaColor](ctx, c, "list area colors", http.MethodGet, "/areas/colors", nil)
}

// =============================================================================
// Session
// =============================================================================

func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	const op = "load session"
	session, err := call[*domain.Session](ctx, c, op, http.MethodGet, "/auth/session", nil)
	return requireData(op, session, err)
}
