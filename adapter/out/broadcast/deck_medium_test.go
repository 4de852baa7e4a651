package broadcast

import (
	"context"
	"os"
	"testing"
	"time"

	"taskdeck/core/port/out"
	"taskdeck/pkg/apperr"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func receive(t *testing.T, sub out.Subscription) []byte {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		if !ok {
			t.Fatal("subscription closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func expectClosed(t *testing.T, sub out.Subscription) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Messages():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("messages channel not closed")
		}
	}
}

func TestHub_DeliversPerChannel(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx := context.Background()

	a, _ := hub.Subscribe(ctx, "taskdeck:sync:a")
	b, _ := hub.Subscribe(ctx, "taskdeck:sync:a")
	other, _ := hub.Subscribe(ctx, "taskdeck:sync:b")

	if err := hub.Publish(ctx, "taskdeck:sync:a", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	if got := string(receive(t, a)); got != "hello" {
		t.Errorf("a got %q", got)
	}
	if got := string(receive(t, b)); got != "hello" {
		t.Errorf("b got %q", got)
	}
	select {
	case msg := <-other.Messages():
		t.Errorf("other channel received %q", msg)
	default:
	}
}

func TestHub_PayloadIsCopied(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sub, _ := hub.Subscribe(context.Background(), "c")

	payload := []byte("abc")
	hub.Publish(context.Background(), "c", payload)
	payload[0] = 'x'

	if got := string(receive(t, sub)); got != "abc" {
		t.Errorf("got %q", got)
	}
}

func TestHub_CloseUnsubscribes(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sub, _ := hub.Subscribe(context.Background(), "c")

	if err := sub.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sub.Close(); err != nil {
		t.Fatal(err)
	}
	expectClosed(t, sub)
	if n := hub.Subscribers("c"); n != 0 {
		t.Errorf("expected no subscribers, got %d", n)
	}
	if err := hub.Publish(context.Background(), "c", []byte("x")); err != nil {
		t.Fatal(err)
	}
}

func TestHub_ContextEndsSubscription(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := hub.Subscribe(ctx, "c")

	cancel()
	expectClosed(t, sub)
}

func TestHub_FullBufferDrops(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Subscribe(context.Background(), "c")

	for i := 0; i < subscriberBuffer+3; i++ {
		hub.Publish(context.Background(), "c", []byte("x"))
	}
	if got := hub.Dropped(); got != 3 {
		t.Errorf("expected 3 drops, got %d", got)
	}
}

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisMedium_Unavailable(t *testing.T) {
	m := NewRedisMedium(unreachableRedis(t), zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.Publish(ctx, "c", []byte("x")); apperr.AsAppError(err).Code != apperr.CodeBroadcastUnavailable {
		t.Errorf("publish: expected broadcast unavailable, got %v", err)
	}
	if _, err := m.Subscribe(ctx, "c"); apperr.AsAppError(err).Code != apperr.CodeBroadcastUnavailable {
		t.Errorf("subscribe: expected broadcast unavailable, got %v", err)
	}
}

// TestRedisMedium_RoundTrip needs a live server in TEST_REDIS_URL.
func TestRedisMedium_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatal(err)
	}
	client := redis.NewClient(opt)
	defer client.Close()

	m := NewRedisMedium(client, zerolog.Nop())
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, "taskdeck:sync:test")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Publish(ctx, "taskdeck:sync:test", []byte(`{"type":"TODO_CREATED"}`)); err != nil {
		t.Fatal(err)
	}
	if got := string(receive(t, sub)); got != `{"type":"TODO_CREATED"}` {
		t.Errorf("got %q", got)
	}

	sub.Close()
	expectClosed(t, sub)
}
