package notify

import (
	"testing"
	"time"

	"taskdeck/core/domain"
	"taskdeck/pkg/apperr"
	"taskdeck/pkg/schedule"

	"github.com/rs/zerolog"
)

func newTestBoard(max int) (*Board, *schedule.Manual) {
	sched := schedule.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return NewBoard(sched, max, zerolog.Nop()), sched
}

func TestBoard_ExpiresAfterDuration(t *testing.T) {
	board, sched := newTestBoard(0)

	id := board.Show(domain.Toast{Message: "Todo completed", Type: domain.ToastSuccess, Duration: 1300 * time.Millisecond})
	views := board.List()
	if len(views) != 1 || views[0].ID != id || views[0].ExpiresAt == nil {
		t.Fatalf("unexpected views %+v", views)
	}

	sched.Advance(1299 * time.Millisecond)
	if len(board.List()) != 1 {
		t.Fatal("toast expired early")
	}
	sched.Advance(time.Millisecond)
	if len(board.List()) != 0 {
		t.Error("toast should have expired")
	}
}

func TestBoard_ZeroDurationStays(t *testing.T) {
	board, sched := newTestBoard(0)
	board.Show(domain.Toast{Message: "sticky", Type: domain.ToastInfo})

	sched.Advance(time.Hour)
	if len(board.List()) != 1 {
		t.Error("toast without duration must stay until hidden")
	}
	if sched.Pending() != 0 {
		t.Errorf("expected no expiry task, got %d", sched.Pending())
	}
}

func TestBoard_HideCancelsExpiry(t *testing.T) {
	board, sched := newTestBoard(0)
	id := board.Show(domain.Toast{Message: "x", Duration: time.Second})

	board.Hide(id)
	board.Hide(id)
	board.Hide("unknown")

	if len(board.List()) != 0 || sched.Pending() != 0 {
		t.Errorf("hide should remove toast and its timer, pending=%d", sched.Pending())
	}
}

func TestBoard_Action(t *testing.T) {
	board, _ := newTestBoard(0)

	var clicks int
	var id string
	id = board.Show(domain.Toast{
		Message: "Todo completed",
		Action: &domain.ToastAction{Label: "Undo", OnClick: func() {
			clicks++
			board.Hide(id)
		}},
	})
	if got := board.List()[0].ActionLabel; got != "Undo" {
		t.Errorf("ActionLabel = %q", got)
	}

	if err := board.Action(id); err != nil {
		t.Fatal(err)
	}
	if clicks != 1 || len(board.List()) != 0 {
		t.Errorf("clicks=%d visible=%d", clicks, len(board.List()))
	}

	if err := board.Action(id); apperr.AsAppError(err).Code != apperr.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}

	plain := board.Show(domain.Toast{Message: "plain"})
	if err := board.Action(plain); apperr.AsAppError(err).Code != apperr.CodeBadRequest {
		t.Errorf("expected bad request, got %v", err)
	}
}

func TestBoard_DropsOldestWhenFull(t *testing.T) {
	board, sched := newTestBoard(2)

	board.Show(domain.Toast{Message: "one", Duration: time.Second})
	board.Show(domain.Toast{Message: "two"})
	board.Show(domain.Toast{Message: "three"})

	views := board.List()
	if len(views) != 2 || views[0].Message != "two" || views[1].Message != "three" {
		t.Errorf("unexpected views %+v", views)
	}
	if sched.Pending() != 0 {
		t.Error("evicted toast should cancel its expiry")
	}
}
