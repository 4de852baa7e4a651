package http

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"taskdeck/core/domain"
	"taskdeck/core/port/in"
	"taskdeck/core/service/cache"
	"taskdeck/infra/middleware"
	"taskdeck/pkg/apperr"
	"taskdeck/pkg/metrics"
	"taskdeck/pkg/resilience"
	"taskdeck/pkg/response"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeTodoService struct {
	todos     []in.TodoView
	lastInput domain.CreateTodoInput
	lastID    int64
	pending   []int64
	toggle    func(id int64) (*in.CompletionState, error)
}

func (f *fakeTodoService) ListTodos(ctx context.Context, filter domain.TodoFilter) ([]in.TodoView, error) {
	if filter.AreaID != nil {
		var out []in.TodoView
		for _, t := range f.todos {
			if t.AreaID != nil && *t.AreaID == *filter.AreaID {
				out = append(out, t)
			}
		}
		return out, nil
	}
	return f.todos, nil
}

func (f *fakeTodoService) TodayView(ctx context.Context, filter domain.TodayFilter) (*domain.TodayView, error) {
	return &domain.TodayView{}, nil
}

func (f *fakeTodoService) CreateTodo(ctx context.Context, input domain.CreateTodoInput) (*domain.Todo, error) {
	f.lastInput = input
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperr.ValidationFailed("title is required")
	}
	return &domain.Todo{ID: -1, Title: input.Title}, nil
}

func (f *fakeTodoService) UpdateTodo(ctx context.Context, id int64, input domain.UpdateTodoInput) (*domain.Todo, error) {
	f.lastID = id
	return &domain.Todo{ID: id}, nil
}

func (f *fakeTodoService) DeleteTodo(ctx context.Context, id int64) error {
	f.lastID = id
	if id == 404 {
		return apperr.NotFound("todo")
	}
	return nil
}

func (f *fakeTodoService) ToggleToday(ctx context.Context, id int64) (*domain.Todo, error) {
	return &domain.Todo{ID: id, IsToday: true}, nil
}

func (f *fakeTodoService) ToggleCompletion(ctx context.Context, id int64) (*in.CompletionState, error) {
	return f.toggle(id)
}

func (f *fakeTodoService) PendingCompletions() []int64 { return f.pending }

func (f *fakeTodoService) CleanupCompletions() int {
	n := len(f.pending)
	f.pending = nil
	return n
}

type fakeSessionService struct {
	session *domain.Session
	err     error
}

func (f *fakeSessionService) Session(ctx context.Context) (*domain.Session, error) {
	return f.session, f.err
}

func (f *fakeSessionService) CacheEntries() []cache.EntryInfo {
	return []cache.EntryInfo{{Key: "todos", Kind: cache.KindTodos, HasValue: true}}
}

func (f *fakeSessionService) HandleAuthFailure() {}

type fakeToasts struct {
	views  []domain.ToastView
	acted  []string
	hidden []string
}

func (f *fakeToasts) List() []domain.ToastView { return f.views }

func (f *fakeToasts) Action(id string) error {
	if id != "t1" {
		return apperr.NotFound("toast")
	}
	f.acted = append(f.acted, id)
	return nil
}

func (f *fakeToasts) Hide(id string) { f.hidden = append(f.hidden, id) }

// =============================================================================
// Helpers
// =============================================================================

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(zerolog.Nop()),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, response.Envelope[json.RawMessage]) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env response.Envelope[json.RawMessage]
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && resp.StatusCode != fiber.StatusNoContent {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, env
}

// =============================================================================
// Todo routes
// =============================================================================

func TestTodoRoutes(t *testing.T) {
	areaID := int64(3)
	svc := &fakeTodoService{
		todos: []in.TodoView{
			{Todo: domain.Todo{ID: 1, Title: "a"}},
			{Todo: domain.Todo{ID: 2, Title: "b", AreaID: &areaID}, CompletionPending: true},
		},
		toggle: func(id int64) (*in.CompletionState, error) {
			return &in.CompletionState{ID: id, Pending: id == 1, Completed: id == 1}, nil
		},
	}
	app := newTestApp()
	NewTodoHandler(svc).Register(app)

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantCode int
		wantErr  string
	}{
		{"list", "GET", "/todos", "", 200, ""},
		{"list by area", "GET", "/todos?area_id=3", "", 200, ""},
		{"bad completed", "GET", "/todos?completed=maybe", "", 400, apperr.CodeInvalidInput},
		{"today", "GET", "/todos/today?days_ahead=7", "", 200, ""},
		{"today out of range", "GET", "/todos/today?days_ahead=31", "", 400, apperr.CodeInvalidInput},
		{"create", "POST", "/todos", `{"title":"Buy milk #home"}`, 201, ""},
		{"create blank", "POST", "/todos", `{"title":"  "}`, 400, apperr.CodeValidationFailed},
		{"create bad body", "POST", "/todos", `{"title":`, 400, apperr.CodeBadRequest},
		{"update", "PUT", "/todos/9", `{"title":"x"}`, 200, ""},
		{"update bad id", "PUT", "/todos/abc", `{"title":"x"}`, 400, apperr.CodeInvalidInput},
		{"delete", "DELETE", "/todos/9", "", 200, ""},
		{"delete missing", "DELETE", "/todos/404", "", 404, apperr.CodeNotFound},
		{"toggle starts window", "POST", "/todos/1/toggle", "", 202, ""},
		{"toggle cancels window", "POST", "/todos/2/toggle", "", 200, ""},
		{"toggle today", "POST", "/todos/2/today", "", 200, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, app, tt.method, tt.target, tt.body)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%+v)", code, tt.wantCode, env)
			}
			if env.Success != (tt.wantErr == "") {
				t.Errorf("success = %v", env.Success)
			}
			if env.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", env.Code, tt.wantErr)
			}
		})
	}
}

func TestTodoList_FlattensDisplayState(t *testing.T) {
	svc := &fakeTodoService{todos: []in.TodoView{
		{Todo: domain.Todo{ID: 5, Title: "x", Completed: true}, CompletionPending: true},
	}}
	app := newTestApp()
	NewTodoHandler(svc).Register(app)

	_, env := do(t, app, "GET", "/todos", "")
	var got []map[string]any
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["id"] != float64(5) || got[0]["completed"] != true || got[0]["completion_pending"] != true {
		t.Errorf("unexpected body %v", got)
	}
}

func TestCompletionRoutes(t *testing.T) {
	svc := &fakeTodoService{pending: []int64{4, 7}}
	app := newTestApp()
	NewTodoHandler(svc).Register(app)

	_, env := do(t, app, "GET", "/completions", "")
	if string(env.Data) != `{"pending":[4,7]}` {
		t.Errorf("pending = %s", env.Data)
	}

	_, env = do(t, app, "POST", "/completions/cleanup", "")
	if string(env.Data) != `{"dropped":2}` {
		t.Errorf("cleanup = %s", env.Data)
	}
	if len(svc.pending) != 0 {
		t.Error("cleanup should drop pending completions")
	}
}

// =============================================================================
// Session and toast routes
// =============================================================================

func TestSessionRoutes(t *testing.T) {
	t.Run("session", func(t *testing.T) {
		app := newTestApp()
		NewSessionHandler(&fakeSessionService{session: &domain.Session{UserID: "u1"}}, &fakeToasts{}).Register(app)

		code, env := do(t, app, "GET", "/session", "")
		if code != 200 || !strings.Contains(string(env.Data), `"user_id":"u1"`) {
			t.Errorf("status=%d data=%s", code, env.Data)
		}
	})

	t.Run("session unauthorized", func(t *testing.T) {
		app := newTestApp()
		NewSessionHandler(&fakeSessionService{err: apperr.Unauthorized("")}, &fakeToasts{}).Register(app)

		code, env := do(t, app, "GET", "/session", "")
		if code != 401 || env.Code != apperr.CodeUnauthorized {
			t.Errorf("status=%d code=%q", code, env.Code)
		}
	})

	t.Run("cache", func(t *testing.T) {
		app := newTestApp()
		NewSessionHandler(&fakeSessionService{}, &fakeToasts{}).Register(app)

		_, env := do(t, app, "GET", "/cache", "")
		if !strings.Contains(string(env.Data), `"key":"todos"`) {
			t.Errorf("cache = %s", env.Data)
		}
	})
}

func TestToastRoutes(t *testing.T) {
	toasts := &fakeToasts{views: []domain.ToastView{{ID: "t1", Message: "Completed", ActionLabel: "Undo"}}}
	app := newTestApp()
	NewSessionHandler(&fakeSessionService{}, toasts).Register(app)

	_, env := do(t, app, "GET", "/toasts", "")
	if !strings.Contains(string(env.Data), `"id":"t1"`) {
		t.Errorf("toasts = %s", env.Data)
	}

	if code, _ := do(t, app, "POST", "/toasts/t1/action", ""); code != 200 {
		t.Errorf("action status = %d", code)
	}
	if code, env := do(t, app, "POST", "/toasts/zz/action", ""); code != 404 || env.Code != apperr.CodeNotFound {
		t.Errorf("unknown toast: status=%d code=%q", code, env.Code)
	}
	if code, _ := do(t, app, "DELETE", "/toasts/t1", ""); code != 204 {
		t.Errorf("dismiss status = %d", code)
	}

	if len(toasts.acted) != 1 || len(toasts.hidden) != 1 {
		t.Errorf("acted=%v hidden=%v", toasts.acted, toasts.hidden)
	}
}

// =============================================================================
// Health
// =============================================================================

type fakeAPIStatus struct {
	breaker *resilience.Breaker
}

func (f *fakeAPIStatus) Breaker() *resilience.Breaker { return f.breaker }

func (f *fakeAPIStatus) Latency() map[string]metrics.LatencySummary {
	return map[string]metrics.LatencySummary{"list todos": {Count: 3, P50ms: 12}}
}

type fakeHub struct{}

func (fakeHub) Dropped() int64 { return 2 }

func (fakeHub) Subscribers(channel string) int {
	if channel == "taskdeck:sync:test" {
		return 1
	}
	return 0
}

func TestHealthRoutes(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.DefaultBreakerConfig("test"), zerolog.Nop())
	app := newTestApp()
	sync := SyncStatus{Channel: "taskdeck:sync:test", Hub: fakeHub{}}
	NewHealthHandler("tab-1", &fakeAPIStatus{breaker: breaker}, sync).Register(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]any
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if resp.StatusCode != 200 || health["tab_id"] != "tab-1" {
		t.Errorf("health: status=%d body=%v", resp.StatusCode, health)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/ready", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	var ready struct {
		Status     string                            `json:"status"`
		Checks     map[string]string                 `json:"checks"`
		APILatency map[string]metrics.LatencySummary `json:"api_latency"`
		Sync       struct {
			Channel     string `json:"channel"`
			Subscribers int    `json:"subscribers"`
			Dropped     int64  `json:"dropped"`
		} `json:"sync"`
	}
	json.NewDecoder(resp.Body).Decode(&ready)
	resp.Body.Close()
	if resp.StatusCode != 200 || ready.Status != "ready" {
		t.Errorf("ready: status=%d body=%+v", resp.StatusCode, ready)
	}
	if ready.APILatency["list todos"].Count != 3 {
		t.Errorf("expected api latency in readiness, got %+v", ready.APILatency)
	}
	if ready.Sync.Subscribers != 1 || ready.Sync.Dropped != 2 || ready.Checks["redis"] != "not configured (in-process hub)" {
		t.Errorf("expected hub stats in readiness, got %+v / %v", ready.Sync, ready.Checks)
	}
}
