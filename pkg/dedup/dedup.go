// Package dedup suppresses retransmitted push events. The broker delivers at
// least once, so an alarm or reading can arrive twice; a Deduper remembers
// recently seen keys for a TTL and answers whether a key is new.
package dedup

import (
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	now  func() time.Time
	seen map[string]time.Time
}

// New builds a deduper remembering at most max keys for ttl each.
func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, now: time.Now, seen: make(map[string]time.Time, max)}
}

// SetClock overrides the time source; tests only.
func (d *Deduper) SetClock(now func() time.Time) { d.now = now }

// ShouldProcess reports whether key has not been seen within the TTL, and
// marks it seen. The empty key is never deduplicated (events without a
// stable identity cannot be told apart).
func (d *Deduper) ShouldProcess(key string) bool {
	if key == "" {
		return true
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false
	}
	d.seen[key] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		for k, exp := range d.seen {
			if now.After(exp) {
				delete(d.seen, k)
			}
			if len(d.seen) <= d.max {
				break
			}
		}
	}
	return true
}
