package dedup

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldProcessSuppressesWithinTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := New(time.Minute, 100)
	d.SetClock(func() time.Time { return now })

	assert.True(t, d.ShouldProcess("alarm|a-1"))
	assert.False(t, d.ShouldProcess("alarm|a-1"))

	now = now.Add(30 * time.Second)
	assert.False(t, d.ShouldProcess("alarm|a-1"))

	// past the TTL the key is new again
	now = now.Add(31 * time.Second)
	assert.True(t, d.ShouldProcess("alarm|a-1"))
}

func TestShouldProcessKeysAreIndependent(t *testing.T) {
	d := New(time.Minute, 100)
	assert.True(t, d.ShouldProcess("a"))
	assert.True(t, d.ShouldProcess("b"))
	assert.False(t, d.ShouldProcess("a"))
}

func TestEmptyKeyNeverDeduplicated(t *testing.T) {
	d := New(time.Minute, 100)
	assert.True(t, d.ShouldProcess(""))
	assert.True(t, d.ShouldProcess(""))
}

func TestEvictionKeepsMapBounded(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := New(time.Minute, 10)
	d.SetClock(func() time.Time { return now })

	for i := 0; i < 10; i++ {
		d.ShouldProcess("k" + strconv.Itoa(i))
	}
	// all ten expire, then fresh keys push the expired ones out
	now = now.Add(2 * time.Minute)
	for i := 10; i < 30; i++ {
		d.ShouldProcess("k" + strconv.Itoa(i))
	}
	for i := 0; i < 10; i++ {
		_, kept := d.seen["k"+strconv.Itoa(i)]
		assert.False(t, kept, "expired key k%d should have been evicted", i)
	}
	assert.Len(t, d.seen, 20)
}
