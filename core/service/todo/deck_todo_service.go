// Package todo is the session facade: cached queries, optimistic mutations
// and the completion undo window behind one service.
package todo

import (
	"context"

	"taskdeck/core/domain"
	"taskdeck/core/port/in"
	"taskdeck/core/port/out"
	"taskdeck/core/service/cache"
	"taskdeck/core/service/completion"
	"taskdeck/core/service/mutation"
	"taskdeck/pkg/apperr"
	"taskdeck/pkg/snowflake"

	"github.com/rs/zerolog"
)

var (
	_ in.TodoService    = (*Service)(nil)
	_ in.AreaService    = (*Service)(nil)
	_ in.SessionService = (*Service)(nil)
)

// Service implements the inbound ports of a tab session.
type Service struct {
	store       *cache.Store
	engine      *mutation.Engine
	completions *completion.Controller
	log         zerolog.Logger
}

// NewService wires the facade and registers the API fetchers on the store.
func NewService(
	api out.API,
	engine *mutation.Engine,
	completions *completion.Controller,
	log zerolog.Logger,
) *Service {
	s := &Service{
		store:       engine.Store(),
		engine:      engine,
		completions: completions,
		log:         log.With().Str("component", "todo_service").Logger(),
	}
	RegisterFetchers(s.store, api)
	return s
}

// RegisterFetchers binds every cache kind to its API read.
func RegisterFetchers(store *cache.Store, api out.API) {
	store.Register(cache.KindTodos, func(ctx context.Context, key cache.Key) (any, error) {
		return api.ListTodos(ctx, domain.ParseTodoFilter(key.Filter))
	})
	store.Register(cache.KindTodayView, func(ctx context.Context, key cache.Key) (any, error) {
		return api.GetTodayView(ctx, domain.ParseTodayFilter(key.Filter))
	})
	store.Register(cache.KindAreas, func(ctx context.Context, key cache.Key) (any, error) {
		return api.ListAreas(ctx)
	})
	store.Register(cache.KindAreaStats, func(ctx context.Context, key cache.Key) (any, error) {
		id, ok := cache.AreaStatsID(key)
		if !ok {
			return nil, apperr.BadRequest("invalid area stats key " + key.String())
		}
		return api.GetAreaStats(ctx, id)
	})
	store.Register(cache.KindAreaColors, func(ctx context.Context, key cache.Key) (any, error) {
		return api.ListAreaColors(ctx)
	})
	store.Register(cache.KindSession, func(ctx context.Context, key cache.Key) (any, error) {
		return api.GetSession(ctx)
	})
}

// query reads a partition and asserts its value type.
func query[T any](ctx context.Context, s *Service, key cache.Key) (T, error) {
	var zero T
	v, err := s.store.Query(ctx, key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, apperr.Internal("unexpected cache value for " + key.String())
	}
	return typed, nil
}

// =============================================================================
// Todos
// =============================================================================

func (s *Service) ListTodos(ctx context.Context, filter domain.TodoFilter) ([]in.TodoView, error) {
	todos, err := query[[]domain.Todo](ctx, s, cache.TodosKey(filter))
	if err != nil {
		return nil, err
	}

	display := s.completions.Display(todos)
	views := make([]in.TodoView, len(display))
	for i, todo := range display {
		views[i] = in.TodoView{
			Todo:              todo,
			PendingAction:     todo.Pending,
			CompletionPending: s.completions.IsPending(todo.ID),
		}
	}
	return views, nil
}

func (s *Service) TodayView(ctx context.Context, filter domain.TodayFilter) (*domain.TodayView, error) {
	view, err := query[*domain.TodayView](ctx, s, cache.TodayKey(filter))
	if err != nil {
		return nil, err
	}
	return &domain.TodayView{
		Today:       s.completions.Display(view.Today),
		DueToday:    s.completions.Display(view.DueToday),
		Upcoming:    s.completions.Display(view.Upcoming),
		GeneratedAt: view.GeneratedAt,
	}, nil
}

func (s *Service) CreateTodo(ctx context.Context, in domain.CreateTodoInput) (*domain.Todo, error) {
	return s.engine.CreateTodo(ctx, in)
}

func (s *Service) UpdateTodo(ctx context.Context, id int64, in domain.UpdateTodoInput) (*domain.Todo, error) {
	return s.engine.UpdateTodo(ctx, id, in)
}

func (s *Service) DeleteTodo(ctx context.Context, id int64) error {
	return s.engine.DeleteTodo(ctx, id)
}

func (s *Service) ToggleToday(ctx context.Context, id int64) (*domain.Todo, error) {
	return s.engine.ToggleToday(ctx, id)
}

// =============================================================================
// Deferred completion
// =============================================================================

// ToggleCompletion starts or cancels the undo window of a cached todo. A
// todo still waiting for its server id cannot be completed yet.
func (s *Service) ToggleCompletion(ctx context.Context, id int64) (*in.CompletionState, error) {
	if snowflake.IsTemp(id) {
		return nil, apperr.BadRequest("todo is still being created")
	}
	todo, ok := s.engine.CachedTodo(id)
	if !ok {
		return nil, apperr.NotFound("todo")
	}
	pending := s.completions.Toggle(todo)
	return &in.CompletionState{
		ID:        id,
		Pending:   pending,
		Completed: s.completions.DisplayCompleted(todo),
	}, nil
}

func (s *Service) PendingCompletions() []int64 {
	return s.completions.PendingIDs()
}

func (s *Service) CleanupCompletions() int {
	return s.completions.Cleanup()
}

// =============================================================================
// Areas
// =============================================================================

func (s *Service) ListAreas(ctx context.Context) ([]in.AreaView, error) {
	areas, err := query[[]domain.Area](ctx, s, cache.AreasKey())
	if err != nil {
		return nil, err
	}
	views := make([]in.AreaView, len(areas))
	for i, area := range areas {
		views[i] = in.AreaView{Area: area, PendingAction: area.Pending}
	}
	return views, nil
}

func (s *Service) CreateArea(ctx context.Context, in domain.CreateAreaInput) (*domain.Area, error) {
	return s.engine.CreateArea(ctx, in)
}

func (s *Service) UpdateArea(ctx context.Context, id int64, in domain.UpdateAreaInput) (*domain.Area, error) {
	return s.engine.UpdateArea(ctx, id, in)
}

func (s *Service) DeleteArea(ctx context.Context, id int64) error {
	return s.engine.DeleteArea(ctx, id)
}

func (s *Service) AreaStats(ctx context.Context, id int64) (*domain.AreaStats, error) {
	return query[*domain.AreaStats](ctx, s, cache.AreaStatsKey(id))
}

func (s *Service) AreaColors(ctx context.Context) ([]domain.AreaColor, error) {
	return query[[]domain.AreaColor](ctx, s, cache.AreaColorsKey())
}

// =============================================================================
// Session
// =============================================================================

func (s *Service) Session(ctx context.Context) (*domain.Session, error) {
	return query[*domain.Session](ctx, s, cache.SessionKey())
}

func (s *Service) CacheEntries() []cache.EntryInfo {
	return s.store.Entries()
}

// HandleAuthFailure drops everything tied to the signed-out user: pending
// completions first, then every cached partition.
func (s *Service) HandleAuthFailure() {
	dropped := s.completions.Cleanup()
	s.store.Clear()
	s.log.Warn().Int("dropped_completions", dropped).Msg("signed out, session state cleared")
}
