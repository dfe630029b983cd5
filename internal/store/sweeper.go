package store

import (
	"context"
	"log"
	"time"
)

// DefaultSweepInterval is how often sensor statuses are re-derived against
// the clock.
const DefaultSweepInterval = 30 * time.Second

// RunStalenessSweep re-derives every sensor's status on a fixed tick until
// the context is cancelled. A sensor that stops reporting crosses into
// offline here, with no new event required. Blocks; run it in a goroutine.
func (s *Store) RunStalenessSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("store: staleness sweep reclassified %d sensor(s)", n)
			}
		}
	}
}

// Sweep re-derives all statuses once and returns how many changed.
// Subscribers of "sensors" are notified only when something did.
func (s *Store) Sweep() int {
	s.mu.Lock()
	changed := 0
	for _, e := range s.sensors {
		// metadata-only sensors keep their placeholder status until the
		// first data point is applied
		if e.meta.LastUpdate.IsZero() {
			continue
		}
		next := s.deriver.Derive(e.meta.Type, e.meta.LastValue, e.meta.LastUpdate)
		if next != e.meta.Status {
			e.meta.Status = next
			changed++
		}
	}
	s.mu.Unlock()

	if changed > 0 {
		s.notify(Event{Category: CategorySensors})
	}
	return changed
}
