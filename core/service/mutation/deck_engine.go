// Package mutation applies every write optimistically to the cache store and
// commits it to the API, rolling back to the exact pre-mutation snapshot when
// the commit fails.
package mutation

import (
	"context"
	"fmt"
	"time"

	"taskdeck/core/domain"
	"taskdeck/core/port/out"
	"taskdeck/core/service/cache"
	"taskdeck/pkg/apperr"
	"taskdeck/pkg/metrics"
	"taskdeck/pkg/schedule"
	"taskdeck/pkg/snowflake"

	"github.com/rs/zerolog"
)

// Config holds mutation engine settings.
type Config struct {
	// RemovalDelay keeps an entity that stopped matching a filtered view
	// visible for a moment after the server confirmed the change.
	RemovalDelay time.Duration
	// ErrorToastDuration is how long failure toasts stay up.
	ErrorToastDuration time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		RemovalDelay:       450 * time.Millisecond,
		ErrorToastDuration: 5 * time.Second,
	}
}

// Broadcaster announces a committed mutation to sibling tab sessions.
type Broadcaster interface {
	Broadcast(ctx context.Context, msgType domain.SyncType, data domain.SyncData)
}

// Engine runs optimistic mutations against a cache store.
type Engine struct {
	store    *cache.Store
	api      out.API
	notifier out.Notifier
	sync     Broadcaster
	ids      *snowflake.Generator
	sched    schedule.Scheduler
	cfg      Config
	log      zerolog.Logger
}

// NewEngine creates a mutation engine.
func NewEngine(
	store *cache.Store,
	api out.API,
	notifier out.Notifier,
	sync Broadcaster,
	ids *snowflake.Generator,
	sched schedule.Scheduler,
	cfg Config,
	log zerolog.Logger,
) *Engine {
	if cfg.ErrorToastDuration <= 0 {
		cfg.ErrorToastDuration = DefaultConfig().ErrorToastDuration
	}
	if cfg.RemovalDelay < 0 {
		cfg.RemovalDelay = 0
	}
	return &Engine{
		store:    store,
		api:      api,
		notifier: notifier,
		sync:     sync,
		ids:      ids,
		sched:    sched,
		cfg:      cfg,
		log:      log.With().Str("component", "mutation_engine").Logger(),
	}
}

// Store returns the cache store the engine writes to.
func (e *Engine) Store() *cache.Store {
	return e.store
}

// =============================================================================
// Generic execution
// =============================================================================

// Op describes one optimistic mutation.
type Op[R any] struct {
	Entity string // "todo", "area"
	Action string // "create", "update", "complete", ...

	// Kinds are snapshotted, then Optimistic runs over each of their
	// partitions before the commit starts.
	Kinds      []cache.Kind
	Optimistic cache.ApplyFunc

	// Commit is the network call. It is the only step that blocks.
	Commit func(ctx context.Context) (R, error)

	// Reconcile replaces optimistic state with the server result.
	Reconcile func(result R)

	// Invalidate lists sibling kinds derived from the entity.
	Invalidate []cache.Kind

	// Sync builds the broadcast announcing the change. Nil skips it.
	Sync func(result R) (domain.SyncType, domain.SyncData)
}

// Execute runs op: snapshot, optimistic apply, commit, then reconcile or
// roll back. The returned error is always an *apperr.AppError.
func Execute[R any](ctx context.Context, e *Engine, op Op[R]) (R, error) {
	var zero R

	snap := e.store.Mutate(op.Kinds, op.Optimistic)

	// 응답 도중 요청자가 떠나도 커밋과 롤백은 끝까지 진행
	commitCtx := context.WithoutCancel(ctx)
	start := time.Now()
	result, err := op.Commit(commitCtx)
	elapsed := time.Since(start)

	if err != nil {
		appErr := apperr.AsAppError(err)
		if appErr.Kind() == apperr.KindAuth {
			// 세션이 이미 정리됨 (캐시 비움) → 롤백/토스트 없음
			metrics.RecordMutation(op.Entity, op.Action, metrics.OutcomeAuth, elapsed)
			e.log.Warn().Str("entity", op.Entity).Str("action", op.Action).Msg("mutation rejected: unauthorized")
			return zero, appErr
		}

		e.store.Restore(snap)
		e.store.InvalidateKeys(snap.Keys()...)
		e.notifyFailure(op.Entity, op.Action, appErr)
		metrics.RecordMutation(op.Entity, op.Action, metrics.OutcomeRollback, elapsed)
		e.log.Warn().
			Err(err).
			Str("entity", op.Entity).
			Str("action", op.Action).
			Str("kind", string(appErr.Kind())).
			Int("partitions", snap.Len()).
			Msg("mutation rolled back")
		return zero, appErr
	}

	if op.Reconcile != nil {
		op.Reconcile(result)
	}
	if len(op.Invalidate) > 0 {
		e.store.Invalidate(op.Invalidate...)
	}
	if op.Sync != nil && e.sync != nil {
		msgType, data := op.Sync(result)
		if data.Timestamp == 0 {
			data.Timestamp = e.sched.Now().UnixMilli()
		}
		e.sync.Broadcast(commitCtx, msgType, data)
	}

	metrics.RecordMutation(op.Entity, op.Action, metrics.OutcomeSuccess, elapsed)
	e.log.Debug().
		Str("entity", op.Entity).
		Str("action", op.Action).
		Dur("commit", elapsed).
		Msg("mutation committed")
	return result, nil
}

// notifyFailure shows the error toast naming the failure kind and the
// attempted action.
func (e *Engine) notifyFailure(entity, action string, err *apperr.AppError) {
	if e.notifier == nil {
		return
	}
	e.notifier.Show(domain.Toast{
		Message:  FailureMessage(entity, action, err),
		Type:     domain.ToastError,
		Duration: e.cfg.ErrorToastDuration,
	})
}

// FailureMessage renders the user-facing text of a failed mutation.
func FailureMessage(entity, action string, err *apperr.AppError) string {
	switch err.Kind() {
	case apperr.KindNetwork:
		return fmt.Sprintf("Couldn't %s %s: network error. Your change was undone.", action, entity)
	case apperr.KindApplication, apperr.KindValidation:
		return fmt.Sprintf("Couldn't %s %s: %s", action, entity, err.Message)
	default:
		return fmt.Sprintf("Couldn't %s %s: something went wrong.", action, entity)
	}
}

// scheduleRemoval runs fn after the removal delay, or right away when the
// delay is zero.
func (e *Engine) scheduleRemoval(fn func()) {
	if e.cfg.RemovalDelay == 0 {
		fn()
		return
	}
	e.sched.AfterFunc(e.cfg.RemovalDelay, fn)
}

func (e *Engine) tempID() (int64, error) {
	id, err := e.ids.Next()
	if err != nil {
		return 0, apperr.InternalWithError(err)
	}
	return id, nil
}

func (e *Engine) now() time.Time {
	return e.sched.Now()
}
