package broadcast

import (
	"context"
	"sync"

	"taskdeck/core/port/out"
	"taskdeck/pkg/apperr"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var _ out.BroadcastMedium = (*RedisMedium)(nil)

// =============================================================================
// RedisMedium - Redis Pub/Sub BroadcastMedium
// =============================================================================

// RedisMedium spans tab sessions running in different processes. Pub/Sub is
// fire-and-forget: subscribers that are not connected miss the message.
type RedisMedium struct {
	client redis.UniversalClient
	log    zerolog.Logger
}

// NewRedisMedium creates a medium on top of client.
func NewRedisMedium(client redis.UniversalClient, log zerolog.Logger) *RedisMedium {
	return &RedisMedium{
		client: client,
		log:    log.With().Str("component", "redis_medium").Logger(),
	}
}

// Publish sends payload on channel.
func (m *RedisMedium) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := m.client.Publish(ctx, channel, payload).Err(); err != nil {
		return apperr.BroadcastUnavailable(err)
	}
	return nil
}

// Subscribe subscribes to channel and waits for the confirmation.
func (m *RedisMedium) Subscribe(ctx context.Context, channel string) (out.Subscription, error) {
	pubsub := m.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, apperr.BroadcastUnavailable(err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan []byte, subscriberBuffer),
		done:   make(chan struct{}),
	}
	go sub.forward(ctx, m.log.With().Str("channel", channel).Logger())

	m.log.Debug().Str("channel", channel).Msg("subscribed")
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan []byte

	once sync.Once
	done chan struct{}
}

// forward copies payloads until the pubsub or ctx ends, then closes ch.
func (s *redisSubscription) forward(ctx context.Context, log zerolog.Logger) {
	defer close(s.ch)

	msgs := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case s.ch <- []byte(msg.Payload):
			case <-s.done:
				return
			default:
				log.Warn().Msg("dropped message due to full buffer")
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.ch
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
