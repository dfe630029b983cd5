// Package series holds bounded windows of time-tagged readings. A Buffer is
// the in-memory history for one sensor or one chart dataset: appends beyond
// capacity evict the oldest entry, everything else stays in arrival order
// until a caller asks for a time re-sort.
package series

import (
	"sort"
	"time"
)

// Point is one reading.
type Point struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Buffer is a capped FIFO of points. It is not safe for concurrent use; the
// owning component guards it.
type Buffer struct {
	capacity int
	pts      []Point
}

// New returns a buffer bounded at capacity entries.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{capacity: capacity, pts: make([]Point, 0, capacity)}
}

// Append adds a point, evicting the oldest when full. No re-sorting happens
// here; points typically arrive in time order already.
func (b *Buffer) Append(p Point) {
	if len(b.pts) >= b.capacity {
		n := copy(b.pts, b.pts[len(b.pts)-b.capacity+1:])
		b.pts = b.pts[:n]
	}
	b.pts = append(b.pts, p)
}

// SortByTime orders the window ascending by timestamp. Arrival order is kept
// for equal timestamps.
func (b *Buffer) SortByTime() {
	sort.SliceStable(b.pts, func(i, j int) bool {
		return b.pts[i].Timestamp.Before(b.pts[j].Timestamp)
	})
}

// SetCapacity rebounds the buffer, keeping the newest entries.
func (b *Buffer) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	b.capacity = capacity
	if len(b.pts) > capacity {
		b.pts = append(b.pts[:0], b.pts[len(b.pts)-capacity:]...)
	}
}

// Len reports how many points are buffered.
func (b *Buffer) Len() int { return len(b.pts) }

// Capacity reports the bound.
func (b *Buffer) Capacity() int { return b.capacity }

// Points returns a copy of the window in its current order.
func (b *Buffer) Points() []Point {
	out := make([]Point, len(b.pts))
	copy(out, b.pts)
	return out
}

// Last returns the most recently appended point.
func (b *Buffer) Last() (Point, bool) {
	if len(b.pts) == 0 {
		return Point{}, false
	}
	return b.pts[len(b.pts)-1], true
}

// Clear drops all points but keeps the capacity.
func (b *Buffer) Clear() { b.pts = b.pts[:0] }
