package out

import "context"

// BroadcastMedium is an unbuffered, best-effort publish/subscribe channel
// shared by every tab session of one origin.
type BroadcastMedium interface {
	// Publish sends payload to every current subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe starts receiving payloads published on channel.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is one listener on a BroadcastMedium.
type Subscription interface {
	// Messages is closed when the subscription ends.
	Messages() <-chan []byte

	// Close is idempotent.
	Close() error
}
