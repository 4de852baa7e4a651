package tabsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskdeck/core/domain"
	"taskdeck/core/port/out"
	"taskdeck/core/service/cache"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// =============================================================================
// Fakes
// =============================================================================

type hub struct {
	mu         sync.Mutex
	subs       map[*hubSub]string
	subscribes int
	published  [][]byte
	publishErr error
}

func newHub() *hub {
	return &hub{subs: make(map[*hubSub]string)}
}

func (h *hub) Publish(ctx context.Context, channel string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.publishErr != nil {
		return h.publishErr
	}
	h.published = append(h.published, payload)
	for s, ch := range h.subs {
		if ch == channel {
			s.ch <- payload
		}
	}
	return nil
}

func (h *hub) Subscribe(ctx context.Context, channel string) (out.Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribes++
	s := &hubSub{hub: h, ch: make(chan []byte, 16)}
	h.subs[s] = channel
	return s, nil
}

func (h *hub) Subscribes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subscribes
}

type hubSub struct {
	hub  *hub
	ch   chan []byte
	once sync.Once
}

func (s *hubSub) Messages() <-chan []byte { return s.ch }

func (s *hubSub) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
	return nil
}

type recorder struct {
	calls chan []cache.Kind
}

func newRecorder() *recorder {
	return &recorder{calls: make(chan []cache.Kind, 16)}
}

func (r *recorder) Invalidate(kinds ...cache.Kind) {
	r.calls <- kinds
}

func (r *recorder) next(t *testing.T) []cache.Kind {
	t.Helper()
	select {
	case kinds := <-r.calls:
		return kinds
	case <-time.After(2 * time.Second):
		t.Fatal("no invalidation received")
		return nil
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case kinds := <-r.calls:
		t.Fatalf("unexpected invalidation %v", kinds)
	case <-time.After(50 * time.Millisecond):
	}
}

func startTab(t *testing.T, h *hub, tabID string) (*Broadcaster, *recorder) {
	t.Helper()
	rec := newRecorder()
	b := New(tabID, h, rec, Config{Origin: "http://localhost:5173"}, zerolog.Nop())
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return b, rec
}

func hasKind(kinds []cache.Kind, want cache.Kind) bool {
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// =============================================================================
// Tests
// =============================================================================

func TestBroadcast_SelfFilteredAndDeliveredToPeers(t *testing.T) {
	h := newHub()
	a, recA := startTab(t, h, "tab-a")
	_, recB := startTab(t, h, "tab-b")

	a.Broadcast(context.Background(), domain.SyncTodoCreated, domain.SyncData{ID: 42})

	kinds := recB.next(t)
	for _, want := range []cache.Kind{cache.KindTodos, cache.KindTodayView} {
		if !hasKind(kinds, want) {
			t.Errorf("peer should invalidate %s, got %v", want, kinds)
		}
	}
	recA.none(t)
}

func TestBroadcast_MessageShape(t *testing.T) {
	h := newHub()
	b := New("tab-a", h, newRecorder(), Config{Origin: "o"}, zerolog.Nop())
	b.now = func() time.Time { return time.UnixMilli(1700000000000) }

	b.Broadcast(context.Background(), domain.SyncTodoCompleted, domain.SyncData{ID: 7, Completed: domain.Bool(true)})

	if len(h.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(h.published))
	}
	var raw map[string]any
	if err := json.Unmarshal(h.published[0], &raw); err != nil {
		t.Fatal(err)
	}
	if raw["type"] != "TODO_COMPLETED" || raw["sourceTabId"] != "tab-a" {
		t.Errorf("unexpected envelope %v", raw)
	}
	data := raw["data"].(map[string]any)
	if data["id"] != float64(7) || data["timestamp"] != float64(1700000000000) || data["completed"] != true {
		t.Errorf("unexpected data %v", data)
	}
	if _, ok := data["is_today"]; ok {
		t.Error("unset optional fields must be omitted")
	}
}

func TestBroadcast_AreaDeletedInvalidatesAreasAndTodos(t *testing.T) {
	h := newHub()
	a, _ := startTab(t, h, "tab-a")
	_, recB := startTab(t, h, "tab-b")

	a.Broadcast(context.Background(), domain.SyncAreaDeleted, domain.SyncData{ID: 3})

	kinds := recB.next(t)
	if !hasKind(kinds, cache.KindAreas) || !hasKind(kinds, cache.KindTodos) {
		t.Errorf("expected areas and todos invalidated, got %v", kinds)
	}
}

func TestListener_IgnoresMalformedAndUnknown(t *testing.T) {
	h := newHub()
	b, rec := startTab(t, h, "tab-b")

	h.Publish(context.Background(), b.Channel(), []byte("{not json"))
	h.Publish(context.Background(), b.Channel(), []byte(`{"type":"TODO_EXPLODED","data":{"id":1},"sourceTabId":"tab-a"}`))
	rec.none(t)

	// listener survives and still applies valid messages
	h.Publish(context.Background(), b.Channel(), []byte(`{"type":"AREA_UPDATED","data":{"id":1,"timestamp":1},"sourceTabId":"tab-a"}`))
	kinds := rec.next(t)
	if !hasKind(kinds, cache.KindAreas) {
		t.Errorf("expected areas invalidated, got %v", kinds)
	}
}

func TestStart_Idempotent(t *testing.T) {
	h := newHub()
	b, _ := startTab(t, h, "tab-a")

	for i := 0; i < 3; i++ {
		if err := b.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if h.Subscribes() != 1 {
		t.Errorf("expected exactly one listener, got %d", h.Subscribes())
	}
}

func TestClose_Idempotent(t *testing.T) {
	h := newHub()
	b := New("tab-a", h, newRecorder(), Config{Origin: "o"}, zerolog.Nop())
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.Subscribes() != 1 {
		t.Error("a closed broadcaster must not resubscribe")
	}
}

func TestUnavailableMedium_NoOp(t *testing.T) {
	b := New("tab-a", nil, newRecorder(), Config{Origin: "o"}, zerolog.Nop())
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("start must degrade silently, got %v", err)
	}
	b.Broadcast(context.Background(), domain.SyncTodoCreated, domain.SyncData{ID: 1})
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	h := newHub()
	h.publishErr = errors.New("connection refused")
	failing := New("tab-a", h, newRecorder(), Config{Origin: "o"}, zerolog.Nop())
	failing.Broadcast(context.Background(), domain.SyncTodoCreated, domain.SyncData{ID: 1})
}

func TestKindsFor(t *testing.T) {
	for _, st := range domain.SyncTypes {
		if len(KindsFor(st)) == 0 {
			t.Errorf("%s invalidates nothing", st)
		}
	}
	if KindsFor("BOGUS") != nil {
		t.Error("unknown types invalidate nothing")
	}
}

func TestChannel(t *testing.T) {
	if got := Channel("https://app.example.com"); got != "taskdeck:sync:https://app.example.com" {
		t.Errorf("Channel() = %q", got)
	}
	b := New(NewTabID(), nil, newRecorder(), Config{Channel: "custom"}, zerolog.Nop())
	if b.Channel() != "custom" {
		t.Errorf("channel override ignored: %q", b.Channel())
	}
}
