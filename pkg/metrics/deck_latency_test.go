package metrics

import (
	"testing"
	"time"
)

func TestLatencyWindow_Percentiles(t *testing.T) {
	w := NewLatencyWindow(100)
	for i := 1; i <= 100; i++ {
		w.Record("list todos", time.Duration(i)*time.Millisecond)
	}

	s := w.Summary("list todos")
	if s.Count != 100 || s.P50ms != 50 || s.P95ms != 95 || s.MaxMs != 100 {
		t.Errorf("unexpected summary %+v", s)
	}
	if got := w.Summary("unknown"); got != (LatencySummary{}) {
		t.Errorf("expected zero summary, got %+v", got)
	}
}

func TestLatencyWindow_KeepsRecentSamples(t *testing.T) {
	w := NewLatencyWindow(4)
	for i := 0; i < 4; i++ {
		w.Record("op", time.Second)
	}
	for i := 0; i < 4; i++ {
		w.Record("op", time.Millisecond)
	}

	s := w.Summaries()["op"]
	if s.Count != 8 || s.MaxMs != 1 {
		t.Errorf("old samples should be evicted: %+v", s)
	}
}
