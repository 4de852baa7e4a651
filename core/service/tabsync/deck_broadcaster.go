// Package tabsync keeps sibling tab sessions consistent. After a successful
// mutation a tab broadcasts a small sync message; every other tab of the
// same origin reacts by invalidating the affected cache kinds.
package tabsync

import (
	"context"
	"sync"
	"time"

	"taskdeck/core/domain"
	"taskdeck/core/port/out"
	"taskdeck/core/service/cache"
	"taskdeck/pkg/apperr"
	"taskdeck/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChannelPrefix scopes the broadcast channel to one origin.
const ChannelPrefix = "taskdeck:sync:"

const defaultPublishTimeout = 2 * time.Second

// Channel returns the broadcast channel name of origin.
func Channel(origin string) string {
	return ChannelPrefix + origin
}

// NewTabID returns a fresh random tab id.
func NewTabID() string {
	return uuid.NewString()
}

// Invalidator marks cache kinds stale.
type Invalidator interface {
	Invalidate(kinds ...cache.Kind)
}

// Config holds broadcaster settings.
type Config struct {
	Origin         string
	Channel        string // overrides Channel(Origin) when set
	PublishTimeout time.Duration
}

// Broadcaster publishes and receives sync messages for one tab session.
type Broadcaster struct {
	tabID       string
	channel     string
	medium      out.BroadcastMedium
	invalidator Invalidator
	timeout     time.Duration
	now         func() time.Time
	log         zerolog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	sub     out.Subscription
	done    chan struct{}
}

// New creates a broadcaster. A nil medium means broadcasting is unavailable:
// every call degrades to a logged no-op.
func New(tabID string, medium out.BroadcastMedium, invalidator Invalidator, cfg Config, log zerolog.Logger) *Broadcaster {
	channel := cfg.Channel
	if channel == "" {
		channel = Channel(cfg.Origin)
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Broadcaster{
		tabID:       tabID,
		channel:     channel,
		medium:      medium,
		invalidator: invalidator,
		timeout:     timeout,
		now:         time.Now,
		log: log.With().
			Str("component", "tabsync").
			Str("tab_id", tabID).
			Logger(),
	}
}

// TabID returns the local tab id.
func (b *Broadcaster) TabID() string { return b.tabID }

// Channel returns the channel name in use.
func (b *Broadcaster) Channel() string { return b.channel }

// =============================================================================
// Outbound
// =============================================================================

// Broadcast stamps a sync message with the tab id and the current time and
// publishes it. Failures are logged, never returned.
func (b *Broadcaster) Broadcast(ctx context.Context, msgType domain.SyncType, data domain.SyncData) {
	if b.medium == nil {
		b.log.Warn().Str("type", string(msgType)).Msg("broadcast unavailable, message dropped")
		return
	}

	if data.Timestamp == 0 {
		data.Timestamp = b.now().UnixMilli()
	}
	msg := domain.SyncMessage{
		Type:        msgType,
		Data:        data,
		SourceTabID: b.tabID,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.log.Error().Err(err).Str("type", string(msgType)).Msg("failed to encode sync message")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.medium.Publish(ctx, b.channel, payload); err != nil {
		b.log.Warn().
			Err(apperr.BroadcastUnavailable(err)).
			Str("type", string(msgType)).
			Msg("failed to publish sync message")
		return
	}
	metrics.RecordSyncMessage("out", string(msgType))
}

// =============================================================================
// Inbound
// =============================================================================

// Start subscribes the single listener of this tab. Calling it again is a
// no-op.
func (b *Broadcaster) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started || b.closed {
		return nil
	}
	if b.medium == nil {
		b.log.Warn().Msg("broadcast unavailable, cross-tab sync disabled")
		b.started = true
		return nil
	}

	sub, err := b.medium.Subscribe(ctx, b.channel)
	if err != nil {
		return apperr.BroadcastUnavailable(err)
	}
	b.sub = sub
	b.started = true
	b.done = make(chan struct{})
	go b.listen(sub.Messages(), b.done)

	b.log.Info().Str("channel", b.channel).Msg("sync listener started")
	return nil
}

func (b *Broadcaster) listen(messages <-chan []byte, done chan struct{}) {
	defer close(done)
	for payload := range messages {
		b.handle(payload)
	}
}

// handle applies one inbound payload.
func (b *Broadcaster) handle(payload []byte) {
	var msg domain.SyncMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		metrics.RecordSyncMessage("dropped", "malformed")
		b.log.Warn().Err(apperr.MalformedMessage(err)).Msg("ignoring sync message")
		return
	}
	if msg.SourceTabID == b.tabID {
		return
	}
	if !msg.Type.Valid() {
		metrics.RecordSyncMessage("dropped", "unknown")
		b.log.Warn().Str("type", string(msg.Type)).Msg("ignoring unknown sync message type")
		return
	}

	kinds := KindsFor(msg.Type)
	b.invalidator.Invalidate(kinds...)
	metrics.RecordSyncMessage("in", string(msg.Type))
	b.log.Debug().
		Str("type", string(msg.Type)).
		Int64("id", msg.Data.ID).
		Str("source", msg.SourceTabID).
		Msg("sync message applied")
}

// KindsFor returns the cache kinds a sync message type invalidates.
func KindsFor(t domain.SyncType) []cache.Kind {
	switch {
	case t.IsTodo():
		return []cache.Kind{cache.KindTodos, cache.KindTodayView, cache.KindAreaStats}
	case t == domain.SyncAreaDeleted:
		return []cache.Kind{cache.KindAreas, cache.KindAreaStats, cache.KindTodos, cache.KindTodayView}
	case t.IsArea():
		return []cache.Kind{cache.KindAreas, cache.KindAreaStats}
	}
	return nil
}

// Close stops the listener. It is idempotent.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	sub, done := b.sub, b.done
	b.sub = nil
	b.mu.Unlock()

	if sub == nil {
		return nil
	}
	err := sub.Close()
	<-done
	b.log.Info().Msg("sync listener stopped")
	return err
}
