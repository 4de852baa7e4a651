package mutation

import (
	"context"

	"taskdeck/core/domain"
	"taskdeck/core/service/cache"
	"taskdeck/pkg/apperr"
)

var areaKinds = []cache.Kind{cache.KindAreas}

// =============================================================================
// Area Mutations
// =============================================================================

// CreateArea prepends a temporary area and swaps it for the server entity.
func (e *Engine) CreateArea(ctx context.Context, in domain.CreateAreaInput) (*domain.Area, error) {
	if msg := domain.ValidateAreaName(in.Name); msg != "" {
		return nil, apperr.ValidationFailed(msg)
	}

	tempID, err := e.tempID()
	if err != nil {
		return nil, err
	}
	now := e.now()
	optimistic := domain.Area{
		ID:          tempID,
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
		Pending:     domain.PendingCreate,
	}

	return Execute(ctx, e, Op[*domain.Area]{
		Entity: "area",
		Action: "create",
		Kinds:  areaKinds,
		Optimistic: func(key cache.Key, v any) (any, bool) {
			list, ok := v.([]domain.Area)
			if !ok {
				return v, false
			}
			return prepend(list, optimistic), true
		},
		Commit: func(ctx context.Context) (*domain.Area, error) {
			return e.api.CreateArea(ctx, &in)
		},
		Reconcile: func(area *domain.Area) {
			e.reconcileArea(tempID, *area)
		},
		Sync: func(area *domain.Area) (domain.SyncType, domain.SyncData) {
			return domain.SyncAreaCreated, domain.SyncData{ID: area.ID}
		},
	})
}

// UpdateArea patches the cached area and commits the patch.
func (e *Engine) UpdateArea(ctx context.Context, id int64, in domain.UpdateAreaInput) (*domain.Area, error) {
	if in.Name != nil {
		if msg := domain.ValidateAreaName(*in.Name); msg != "" {
			return nil, apperr.ValidationFailed(msg)
		}
	}

	now := e.now()
	return Execute(ctx, e, Op[*domain.Area]{
		Entity: "area",
		Action: "update",
		Kinds:  areaKinds,
		Optimistic: func(key cache.Key, v any) (any, bool) {
			list, ok := v.([]domain.Area)
			if !ok {
				return v, false
			}
			return patch(list, id, areaID, func(a domain.Area) domain.Area {
				in.ApplyTo(&a, now)
				a.Pending = domain.PendingUpdate
				return a
			})
		},
		Commit: func(ctx context.Context) (*domain.Area, error) {
			return e.api.UpdateArea(ctx, id, &in)
		},
		Reconcile: func(area *domain.Area) {
			e.reconcileArea(id, *area)
		},
		Sync: func(area *domain.Area) (domain.SyncType, domain.SyncData) {
			return domain.SyncAreaUpdated, domain.SyncData{ID: area.ID}
		},
	})
}

// DeleteArea marks the area deleted, then drops it. Todos of the area are
// reassigned by the server, so every todo-derived kind is invalidated.
func (e *Engine) DeleteArea(ctx context.Context, id int64) error {
	_, err := Execute(ctx, e, Op[struct{}]{
		Entity: "area",
		Action: "delete",
		Kinds:  areaKinds,
		Optimistic: func(key cache.Key, v any) (any, bool) {
			list, ok := v.([]domain.Area)
			if !ok {
				return v, false
			}
			return patch(list, id, areaID, func(a domain.Area) domain.Area {
				a.Pending = domain.PendingDelete
				return a
			})
		},
		Commit: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.api.DeleteArea(ctx, id)
		},
		Reconcile: func(struct{}) {
			e.store.Apply(areaKinds, func(key cache.Key, v any) (any, bool) {
				list, ok := v.([]domain.Area)
				if !ok {
					return v, false
				}
				return remove(list, id, areaID)
			})
		},
		Invalidate: []cache.Kind{cache.KindTodos, cache.KindTodayView, cache.KindAreaStats},
		Sync: func(struct{}) (domain.SyncType, domain.SyncData) {
			return domain.SyncAreaDeleted, domain.SyncData{ID: id}
		},
	})
	return err
}

// CachedArea returns the cached copy of an area.
func (e *Engine) CachedArea(id int64) (domain.Area, bool) {
	v, ok := e.store.Peek(cache.AreasKey())
	if !ok {
		return domain.Area{}, false
	}
	list, _ := v.([]domain.Area)
	if i := indexOf(list, id, areaID); i >= 0 {
		return list[i], true
	}
	return domain.Area{}, false
}

func (e *Engine) reconcileArea(id int64, server domain.Area) {
	server.Pending = domain.PendingNone
	e.store.Apply(areaKinds, func(key cache.Key, v any) (any, bool) {
		list, ok := v.([]domain.Area)
		if !ok {
			return v, false
		}
		return patch(list, id, areaID, func(domain.Area) domain.Area { return server })
	})
}
