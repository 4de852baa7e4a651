package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"network", NetworkError("create todo", errors.New("dial tcp: refused")), KindNetwork},
		{"application", ApplicationError("create todo", "title taken"), KindApplication},
		{"not found", NotFound("todo"), KindApplication},
		{"auth", Unauthorized(""), KindAuth},
		{"validation", ValidationFailed("title is required"), KindValidation},
		{"wrapped", fmt.Errorf("outer: %w", NetworkError("x", nil)), KindNetwork},
		{"plain", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestApplicationErrorFallbackMessage(t *testing.T) {
	err := ApplicationError("delete area", "")
	if err.Message != "delete area failed" {
		t.Errorf("expected fallback message, got %q", err.Message)
	}

	err = ApplicationError("delete area", "area has todos")
	if err.Message != "area has todos" {
		t.Errorf("expected server message, got %q", err.Message)
	}
}

func TestIsAuth(t *testing.T) {
	if !IsAuth(fmt.Errorf("wrapped: %w", Unauthorized("expired"))) {
		t.Error("expected wrapped unauthorized to be auth")
	}
	if IsAuth(NetworkError("x", nil)) {
		t.Error("network error must not be auth")
	}
}

func TestGetHTTPStatus(t *testing.T) {
	if got := GetHTTPStatus(NotFound("area")); got != http.StatusNotFound {
		t.Errorf("expected 404, got %d", got)
	}
	if got := GetHTTPStatus(errors.New("x")); got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
}

func TestErrorString(t *testing.T) {
	err := NetworkError("update todo", errors.New("timeout"))
	want := "[NETWORK_ERROR] network error during update todo: timeout"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, err.Err) {
		t.Error("expected Unwrap to expose the cause")
	}
}
