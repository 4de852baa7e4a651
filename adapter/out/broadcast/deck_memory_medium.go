// Package broadcast provides the media tab sessions use to reach each other.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"

	"taskdeck/core/port/out"

	"github.com/rs/zerolog"
)

const subscriberBuffer = 64

var _ out.BroadcastMedium = (*Hub)(nil)

// =============================================================================
// Hub - in-process BroadcastMedium
// =============================================================================

// Hub is an in-process medium for sessions sharing one process.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*hubSubscription]struct{} // channel -> subscribers
	log      zerolog.Logger

	dropped atomic.Int64
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		channels: make(map[string]map[*hubSubscription]struct{}),
		log:      log.With().Str("component", "broadcast_hub").Logger(),
	}
}

// Publish delivers payload to every current subscriber of channel. Full
// subscriber buffers drop the message.
func (h *Hub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.channels[channel] {
		msg := append([]byte(nil), payload...)
		select {
		case sub.ch <- msg:
		default:
			h.dropped.Add(1)
			h.log.Warn().Str("channel", channel).Msg("dropped message due to full buffer")
		}
	}
	return nil
}

// Subscribe registers a subscriber on channel. The subscription also ends
// when ctx is canceled.
func (h *Hub) Subscribe(ctx context.Context, channel string) (out.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &hubSubscription{
		hub:     h,
		channel: channel,
		ch:      make(chan []byte, subscriberBuffer),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*hubSubscription]struct{})
	}
	h.channels[channel][sub] = struct{}{}
	total := len(h.channels[channel])
	h.mu.Unlock()

	h.log.Debug().Str("channel", channel).Int("subscribers", total).Msg("subscribed")

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.Close()
			case <-sub.done:
			}
		}()
	}
	return sub, nil
}

// Dropped returns how many deliveries were lost to full buffers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers returns the subscriber count of channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) unsubscribe(sub *hubSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.channels[sub.channel]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	// Publish는 RLock 아래에서 전송 → 여기서 닫아도 안전
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.channels, sub.channel)
	}
}

type hubSubscription struct {
	hub     *Hub
	channel string
	ch      chan []byte

	once sync.Once
	done chan struct{}
}

func (s *hubSubscription) Messages() <-chan []byte {
	return s.ch
}

func (s *hubSubscription) Close() error {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
		close(s.done)
	})
	return nil
}
