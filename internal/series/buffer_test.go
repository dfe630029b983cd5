package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(sec int64) Point {
	return Point{Value: float64(sec), Timestamp: time.Unix(sec, 0)}
}

func TestBufferCapNeverExceeded(t *testing.T) {
	b := New(100)
	for i := int64(0); i < 250; i++ {
		b.Append(pt(i))
		assert.LessOrEqual(t, b.Len(), 100)
	}
	require.Equal(t, 100, b.Len())

	// the most recent 100 survive, in order
	pts := b.Points()
	assert.Equal(t, int64(150), pts[0].Timestamp.Unix())
	assert.Equal(t, int64(249), pts[99].Timestamp.Unix())
}

func TestBufferSortByTime(t *testing.T) {
	b := New(10)
	b.Append(pt(3))
	b.Append(pt(1))
	b.Append(pt(2))
	b.SortByTime()

	pts := b.Points()
	require.Len(t, pts, 3)
	assert.Equal(t, int64(1), pts[0].Timestamp.Unix())
	assert.Equal(t, int64(2), pts[1].Timestamp.Unix())
	assert.Equal(t, int64(3), pts[2].Timestamp.Unix())
}

func TestBufferSetCapacityKeepsNewest(t *testing.T) {
	b := New(10)
	for i := int64(0); i < 10; i++ {
		b.Append(pt(i))
	}
	b.SetCapacity(3)
	require.Equal(t, 3, b.Len())
	pts := b.Points()
	assert.Equal(t, int64(7), pts[0].Timestamp.Unix())
	assert.Equal(t, int64(9), pts[2].Timestamp.Unix())

	// appends keep respecting the new bound
	b.Append(pt(10))
	assert.Equal(t, 3, b.Len())
}

func TestBufferLastAndClear(t *testing.T) {
	b := New(5)
	_, ok := b.Last()
	assert.False(t, ok)

	b.Append(pt(1))
	b.Append(pt(2))
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, int64(2), last.Timestamp.Unix())

	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 5, b.Capacity())
}
