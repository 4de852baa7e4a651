package mutation

import (
	"context"

	"taskdeck/core/domain"
	"taskdeck/core/service/cache"
	"taskdeck/pkg/apperr"
)

var (
	todoKinds        = []cache.Kind{cache.KindTodos, cache.KindTodayView}
	todoDerivedKinds = []cache.Kind{cache.KindTodayView, cache.KindAreaStats}
)

// =============================================================================
// Todo Mutations
// =============================================================================

// CreateTodo prepends a temporary todo to every matching todos partition and
// swaps it for the server entity once the API confirms.
func (e *Engine) CreateTodo(ctx context.Context, in domain.CreateTodoInput) (*domain.Todo, error) {
	title, tags := domain.ExtractTags(in.Title)
	if msg := domain.ValidateTitle(title); msg != "" {
		return nil, apperr.ValidationFailed(msg)
	}
	in.Title = title
	in.Tags = domain.MergeTags(in.Tags, tags...)

	tempID, err := e.tempID()
	if err != nil {
		return nil, err
	}
	now := e.now()
	optimistic := domain.Todo{
		ID:          tempID,
		Title:       in.Title,
		Description: in.Description,
		IsToday:     in.IsToday,
		AreaID:      in.AreaID,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
		Pending:     domain.PendingCreate,
	}

	return Execute(ctx, e, Op[*domain.Todo]{
		Entity: "todo",
		Action: "create",
		Kinds:  []cache.Kind{cache.KindTodos},
		Optimistic: func(key cache.Key, v any) (any, bool) {
			list, ok := v.([]domain.Todo)
			if !ok || !domain.ParseTodoFilter(key.Filter).Matches(&optimistic) {
				return v, false
			}
			return prepend(list, optimistic), true
		},
		Commit: func(ctx context.Context) (*domain.Todo, error) {
			return e.api.CreateTodo(ctx, &in)
		},
		Reconcile: func(todo *domain.Todo) {
			// temp id captured at mutation time
			e.reconcileTodo(tempID, *todo)
		},
		Invalidate: todoDerivedKinds,
		Sync: func(todo *domain.Todo) (domain.SyncType, domain.SyncData) {
			return domain.SyncTodoCreated, domain.SyncData{ID: todo.ID}
		},
	})
}

// UpdateTodo patches the cached todo in place and commits the patch.
func (e *Engine) UpdateTodo(ctx context.Context, id int64, in domain.UpdateTodoInput) (*domain.Todo, error) {
	if in.Title != nil {
		if msg := domain.ValidateTitle(*in.Title); msg != "" {
			return nil, apperr.ValidationFailed(msg)
		}
	}

	now := e.now()
	apply := func(t domain.Todo) domain.Todo {
		in.ApplyTo(&t, now)
		t.Pending = domain.PendingUpdate
		return t
	}

	return Execute(ctx, e, Op[*domain.Todo]{
		Entity: "todo",
		Action: updateAction(&in),
		Kinds:  todoKinds,
		Optimistic: func(key cache.Key, v any) (any, bool) {
			return patchTodoValue(v, id, apply)
		},
		Commit: func(ctx context.Context) (*domain.Todo, error) {
			return e.api.UpdateTodo(ctx, id, &in)
		},
		Reconcile: func(todo *domain.Todo) {
			e.reconcileTodo(id, *todo)
		},
		Invalidate: todoDerivedKinds,
		Sync: func(todo *domain.Todo) (domain.SyncType, domain.SyncData) {
			return updateSync(&in, todo)
		},
	})
}

// DeleteTodo marks the todo deleted, then drops it once the API confirms.
func (e *Engine) DeleteTodo(ctx context.Context, id int64) error {
	_, err := Execute(ctx, e, Op[struct{}]{
		Entity: "todo",
		Action: "delete",
		Kinds:  todoKinds,
		Optimistic: func(key cache.Key, v any) (any, bool) {
			return patchTodoValue(v, id, func(t domain.Todo) domain.Todo {
				t.Pending = domain.PendingDelete
				return t
			})
		},
		Commit: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.api.DeleteTodo(ctx, id)
		},
		Reconcile: func(struct{}) {
			e.store.Apply(todoKinds, func(key cache.Key, v any) (any, bool) {
				return removeTodoValue(v, id)
			})
		},
		Invalidate: todoDerivedKinds,
		Sync: func(struct{}) (domain.SyncType, domain.SyncData) {
			return domain.SyncTodoDeleted, domain.SyncData{ID: id}
		},
	})
	return err
}

// ToggleToday flips is_today of a cached todo.
func (e *Engine) ToggleToday(ctx context.Context, id int64) (*domain.Todo, error) {
	current, ok := e.CachedTodo(id)
	if !ok {
		return nil, apperr.NotFound("todo")
	}
	return e.UpdateTodo(ctx, id, domain.UpdateTodoInput{IsToday: domain.Bool(!current.IsToday)})
}

// CachedTodo returns the cached copy of a todo from any todos or today
// partition.
func (e *Engine) CachedTodo(id int64) (domain.Todo, bool) {
	var values []any
	for _, kind := range todoKinds {
		for _, key := range e.store.Keys(kind) {
			if v, ok := e.store.Peek(key); ok {
				values = append(values, v)
			}
		}
	}
	return findTodo(values, id)
}

// =============================================================================
// Reconcile
// =============================================================================

// reconcileTodo replaces the optimistic entity id with the server entity.
// Todos partitions the entity no longer matches drop it after RemovalDelay;
// partitions it now matches but does not hold are marked stale, since only
// the server knows where it belongs in their order.
func (e *Engine) reconcileTodo(id int64, server domain.Todo) {
	server.Pending = domain.PendingNone
	replace := func(domain.Todo) domain.Todo { return server }

	leaving := make(map[cache.Key]bool)
	var entering []cache.Key
	e.store.Apply(todoKinds, func(key cache.Key, v any) (any, bool) {
		next, changed := patchTodoValue(v, id, replace)
		if key.Kind != cache.KindTodos {
			return next, changed
		}
		matches := domain.ParseTodoFilter(key.Filter).Matches(&server)
		switch {
		case changed && !matches:
			leaving[key] = true
		case !changed && matches && !holdsTodo(v, server.ID):
			entering = append(entering, key)
		}
		return next, changed
	})

	if len(entering) > 0 {
		e.store.InvalidateKeys(entering...)
	}
	if len(leaving) > 0 {
		e.scheduleRemoval(func() {
			e.removeLeaving(server.ID, leaving)
		})
	}
}

func holdsTodo(v any, id int64) bool {
	list, ok := v.([]domain.Todo)
	return ok && indexOf(list, id, todoID) >= 0
}

// removeLeaving drops id from the given todos partitions unless it matches
// their filter again by now.
func (e *Engine) removeLeaving(id int64, keys map[cache.Key]bool) {
	e.store.Apply([]cache.Kind{cache.KindTodos}, func(key cache.Key, v any) (any, bool) {
		list, ok := v.([]domain.Todo)
		if !ok || !keys[key] {
			return v, false
		}
		i := indexOf(list, id, todoID)
		if i < 0 || domain.ParseTodoFilter(key.Filter).Matches(&list[i]) {
			return v, false
		}
		return remove(list, id, todoID)
	})
}

func patchTodoValue(v any, id int64, fn func(domain.Todo) domain.Todo) (any, bool) {
	switch val := v.(type) {
	case []domain.Todo:
		return patch(val, id, todoID, fn)
	case *domain.TodayView:
		return patchTodayView(val, id, fn)
	}
	return v, false
}

func removeTodoValue(v any, id int64) (any, bool) {
	switch val := v.(type) {
	case []domain.Todo:
		return remove(val, id, todoID)
	case *domain.TodayView:
		return removeFromTodayView(val, id)
	}
	return v, false
}

// =============================================================================
// Helpers
// =============================================================================

func updateAction(in *domain.UpdateTodoInput) string {
	if in.Completed != nil {
		if *in.Completed {
			return "complete"
		}
		return "reopen"
	}
	return "update"
}

// updateSync picks the sync type announcing an update.
func updateSync(in *domain.UpdateTodoInput, todo *domain.Todo) (domain.SyncType, domain.SyncData) {
	data := domain.SyncData{ID: todo.ID}
	switch {
	case in.Completed != nil:
		data.Completed = domain.Bool(todo.Completed)
		if todo.Completed {
			return domain.SyncTodoCompleted, data
		}
		return domain.SyncTodoUncompleted, data
	case in.IsToday != nil && onlyToday(in):
		data.IsToday = domain.Bool(todo.IsToday)
		return domain.SyncTodoTodayToggled, data
	default:
		return domain.SyncTodoUpdated, data
	}
}

func onlyToday(in *domain.UpdateTodoInput) bool {
	return in.Title == nil && in.Description == nil && in.AreaID == nil &&
		in.DueDate == nil && in.Tags == nil
}
