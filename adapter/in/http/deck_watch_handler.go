package http

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"taskdeck/core/service/cache"
	"taskdeck/pkg/apperr"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// CacheWatcher is the part of the cache store a watch stream reads.
type CacheWatcher interface {
	Query(ctx context.Context, key cache.Key) (any, error)
	Peek(key cache.Key) (any, bool)
	IsStale(key cache.Key) bool
	Observe(key cache.Key) *cache.Observer
}

// WatchHandler streams partition changes over Server-Sent Events.
type WatchHandler struct {
	store     CacheWatcher
	heartbeat time.Duration
	log       zerolog.Logger
}

func NewWatchHandler(store CacheWatcher, heartbeat time.Duration, log zerolog.Logger) *WatchHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &WatchHandler{store: store, heartbeat: heartbeat, log: log}
}

func (h *WatchHandler) Register(router fiber.Router) {
	router.Get("/watch/:kind", h.Stream)
}

type watchEvent struct {
	Key      string `json:"key"`
	Stale    bool   `json:"stale"`
	HasValue bool   `json:"has_value"`
	Data     any    `json:"data,omitempty"`
}

// Stream handles GET /watch/:kind. The partition is observed for the life
// of the connection, so it is refetched as soon as it is invalidated.
//
//	event: snapshot   current value once the stream opens
//	event: change     value after every write, invalidation or refetch
func (h *WatchHandler) Stream(c *fiber.Ctx) error {
	key, err := watchKey(c)
	if err != nil {
		return err
	}

	// 첫 로드 실패해도 스트림은 열고 이후 refetch를 기다림
	if _, err := h.store.Query(c.UserContext(), key); err != nil {
		h.log.Debug().Err(err).Str("key", key.String()).Msg("watch: initial load failed")
	}
	obs := h.store.Observe(key)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer obs.Close()
		h.log.Debug().Str("key", key.String()).Msg("watch stream opened")

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		if err := h.writeEvent(w, "snapshot", key); err != nil {
			return
		}
		for {
			select {
			case <-obs.C:
				if err := h.writeEvent(w, "change", key); err != nil {
					h.log.Debug().Str("key", key.String()).Msg("watch client disconnected")
					return
				}
			case <-ticker.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					h.log.Debug().Str("key", key.String()).Msg("watch client disconnected")
					return
				}
			}
		}
	})
	return nil
}

func (h *WatchHandler) writeEvent(w *bufio.Writer, name string, key cache.Key) error {
	ev := watchEvent{Key: key.String(), Stale: h.store.IsStale(key)}
	ev.Data, ev.HasValue = h.store.Peek(key)

	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("key", key.String()).Msg("watch: encode event")
		return err
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return w.Flush()
}

// watchKey maps the route to a partition key, using the same query
// parameters as the matching read route.
func watchKey(c *fiber.Ctx) (cache.Key, error) {
	switch cache.Kind(c.Params("kind")) {
	case cache.KindTodos:
		filter, err := todoFilterFromQuery(c)
		if err != nil {
			return cache.Key{}, err
		}
		return cache.TodosKey(filter), nil
	case cache.KindTodayView:
		filter, err := todayFilterFromQuery(c)
		if err != nil {
			return cache.Key{}, err
		}
		return cache.TodayKey(filter), nil
	case cache.KindAreas:
		return cache.AreasKey(), nil
	case cache.KindAreaStats:
		id := int64(c.QueryInt("id", 0))
		if id <= 0 {
			return cache.Key{}, apperr.InvalidInput("id", "must be a positive integer")
		}
		return cache.AreaStatsKey(id), nil
	case cache.KindAreaColors:
		return cache.AreaColorsKey(), nil
	case cache.KindSession:
		return cache.SessionKey(), nil
	}
	return cache.Key{}, apperr.InvalidInput("kind", "unknown partition kind")
}
