package snowflake

import (
	"sync"
	"testing"
	"time"
)

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name    string
		nodeID  int64
		wantErr bool
	}{
		{"valid node 0", 0, false},
		{"valid node max", 1023, false},
		{"invalid node -1", -1, true},
		{"invalid node 1024", 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.nodeID)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGenerator(%d) error = %v, wantErr %v", tt.nodeID, err, tt.wantErr)
			}
		})
	}
}

func TestNext_NegativeAndUnique(t *testing.T) {
	gen, err := NewGenerator(7)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[int64]bool)
	for i := 0; i < 5000; i++ {
		id := gen.MustNext()
		if !IsTemp(id) {
			t.Fatalf("expected negative temp id, got %d", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestNext_Concurrent(t *testing.T) {
	gen, _ := NewGenerator(1)

	var wg sync.WaitGroup
	ids := sync.Map{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				id := gen.MustNext()
				if _, loaded := ids.LoadOrStore(id, true); loaded {
					t.Errorf("duplicate id: %d", id)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNext_ClockMovedBack(t *testing.T) {
	gen, _ := NewGenerator(1)
	now := int64(1704067200000 + 5000)
	gen.now = func() int64 { return now }

	if _, err := gen.Next(); err != nil {
		t.Fatal(err)
	}
	now -= 10
	if _, err := gen.Next(); err != ErrClockMovedBack {
		t.Errorf("expected ErrClockMovedBack, got %v", err)
	}
}

func TestParse(t *testing.T) {
	gen, _ := NewGenerator(42)

	before := time.Now()
	id := gen.MustNext()
	after := time.Now()

	ts, nodeID, seq := Parse(id)
	if nodeID != 42 {
		t.Errorf("nodeID = %d, want 42", nodeID)
	}
	if seq != 0 {
		t.Errorf("sequence = %d, want 0", seq)
	}
	if ts.Before(before.Add(-time.Second)) || ts.After(after.Add(time.Second)) {
		t.Errorf("timestamp %v outside [%v, %v]", ts, before, after)
	}
}

func TestIsTemp(t *testing.T) {
	if IsTemp(42) {
		t.Error("server ids are not temporary")
	}
	if !IsTemp(-1) {
		t.Error("negative ids are temporary")
	}
}
