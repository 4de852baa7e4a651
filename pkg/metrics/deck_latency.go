package metrics

import (
	"sort"
	"sync"
	"time"
)

// =============================================================================
// API Latency Window (P50/P95/P99 per operation)
// =============================================================================

const defaultLatencyWindow = 256

// LatencySummary describes the recent latencies of one operation.
type LatencySummary struct {
	Count int64   `json:"count"` // lifetime
	P50ms float64 `json:"p50_ms"`
	P95ms float64 `json:"p95_ms"`
	P99ms float64 `json:"p99_ms"`
	MaxMs float64 `json:"max_ms"`
}

// latencyRing keeps the last len(samples) observations.
type latencyRing struct {
	samples []time.Duration
	next    int
	full    bool
	count   int64
}

func (r *latencyRing) add(d time.Duration) {
	r.samples[r.next] = d
	r.next = (r.next + 1) % len(r.samples)
	if r.next == 0 {
		r.full = true
	}
	r.count++
}

func (r *latencyRing) summary() LatencySummary {
	n := r.next
	if r.full {
		n = len(r.samples)
	}
	if n == 0 {
		return LatencySummary{}
	}
	sorted := make([]time.Duration, n)
	copy(sorted, r.samples[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	at := func(p float64) float64 {
		return ms(sorted[int(float64(n-1)*p)])
	}
	return LatencySummary{
		Count: r.count,
		P50ms: at(0.50),
		P95ms: at(0.95),
		P99ms: at(0.99),
		MaxMs: ms(sorted[n-1]),
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// LatencyWindow tracks recent latencies per operation name.
type LatencyWindow struct {
	mu     sync.Mutex
	size   int
	byName map[string]*latencyRing
}

// NewLatencyWindow keeps the last size samples per operation.
func NewLatencyWindow(size int) *LatencyWindow {
	if size <= 0 {
		size = defaultLatencyWindow
	}
	return &LatencyWindow{size: size, byName: make(map[string]*latencyRing)}
}

// Record adds one observation.
func (w *LatencyWindow) Record(name string, d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.byName[name]
	if !ok {
		r = &latencyRing{samples: make([]time.Duration, w.size)}
		w.byName[name] = r
	}
	r.add(d)
}

// Summary returns the summary of one operation.
func (w *LatencyWindow) Summary(name string) LatencySummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.byName[name]; ok {
		return r.summary()
	}
	return LatencySummary{}
}

// Summaries returns every operation's summary.
func (w *LatencyWindow) Summaries() map[string]LatencySummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]LatencySummary, len(w.byName))
	for name, r := range w.byName {
		out[name] = r.summary()
	}
	return out
}
