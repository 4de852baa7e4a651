// Package snowflake generates temporary ids for optimistically created
// entities.
//
// Layout of the magnitude (63 bits):
//
//	┌─────────────────────┬────────────┬──────────────┐
//	│      41 bits        │  10 bits   │   12 bits    │
//	│ timestamp (ms)      │ node_id    │  sequence    │
//	└─────────────────────┴────────────┴──────────────┘
//
// Temporary ids are the negated value, so they never collide with the
// positive ids the API assigns, and they stay unique across tab sessions
// that use different node ids.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	// Custom epoch: 2024-01-01 00:00:00 UTC
	epoch int64 = 1704067200000

	nodeIDBits   = 10
	sequenceBits = 12

	maxNodeID   = (1 << nodeIDBits) - 1   // 1023
	maxSequence = (1 << sequenceBits) - 1 // 4095

	timestampShift = nodeIDBits + sequenceBits // 22
	nodeIDShift    = sequenceBits              // 12
)

var (
	ErrInvalidNodeID  = errors.New("node ID must be between 0 and 1023")
	ErrClockMovedBack = errors.New("clock moved backwards")
)

// Generator hands out unique negative ids.
type Generator struct {
	mu       sync.Mutex
	nodeID   int64
	sequence int64
	lastTime int64
	now      func() int64
}

// NewGenerator creates a generator for one node (one tab session).
func NewGenerator(nodeID int64) (*Generator, error) {
	if nodeID < 0 || nodeID > maxNodeID {
		return nil, ErrInvalidNodeID
	}
	return &Generator{
		nodeID: nodeID,
		now:    func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// Next returns the next temporary id (always < 0).
func (g *Generator) Next() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now < g.lastTime {
		return 0, ErrClockMovedBack
	}

	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// 같은 ms 안에서 시퀀스 소진 → 다음 ms 대기
			for now <= g.lastTime {
				time.Sleep(100 * time.Microsecond)
				now = g.now()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now

	id := ((now - epoch) << timestampShift) | (g.nodeID << nodeIDShift) | g.sequence
	return -id, nil
}

// MustNext returns the next temporary id and panics on clock regression.
func (g *Generator) MustNext() int64 {
	id, err := g.Next()
	if err != nil {
		panic(err)
	}
	return id
}

// IsTemp reports whether id was produced by a Generator rather than the API.
func IsTemp(id int64) bool {
	return id < 0
}

// Parse extracts components from a temporary id.
func Parse(id int64) (timestamp time.Time, nodeID int64, sequence int64) {
	if id < 0 {
		id = -id
	}
	timestamp = time.UnixMilli((id >> timestampShift) + epoch)
	nodeID = (id >> nodeIDShift) & maxNodeID
	sequence = id & maxSequence
	return
}
