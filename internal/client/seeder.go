package client

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shield-iot/dashboard/internal/store"
)

// Seeder (re)seeds the store from the backend's query endpoints: on startup,
// after every reconnect, and on the periodic stats tick. Fetch failures
// leave existing state untouched.
type Seeder struct {
	Client       *Client
	Store        *store.Store
	HistoryLimit int // readings pulled per sensor on resync
	AlarmLimit   int
}

// Resync pulls the sensor snapshot, recent alarms and stats. The snapshot is
// merged, never blindly installed: a fresh store gets ReplaceSensors, a
// populated one gets per-sensor upserts so a fetch that completes after
// newer push events cannot erase their effect.
func (s *Seeder) Resync(ctx context.Context) error {
	sensors, err := s.Client.Sensors(ctx)
	if err != nil {
		return fmt.Errorf("snapshot fetch: %w", err)
	}
	if len(s.Store.Sensors()) == 0 {
		s.Store.ReplaceSensors(sensors)
	} else {
		for _, sn := range sensors {
			s.Store.UpsertSensor(sn)
		}
	}

	limit := s.HistoryLimit
	if limit <= 0 {
		limit = store.DefaultReadingsCap
	}
	for _, sn := range sensors {
		pts, err := s.Client.History(ctx, sn.ID, limit)
		if err != nil {
			log.Printf("seeder: history for %s unavailable: %v", sn.ID, err)
			continue
		}
		s.Store.SeedReadings(sn.ID, pts)
	}

	alarmLimit := s.AlarmLimit
	if alarmLimit <= 0 {
		alarmLimit = store.DefaultAlarmsCap
	}
	alarms, err := s.Client.Alarms(ctx, alarmLimit, nil)
	if err != nil {
		log.Printf("seeder: alarm fetch failed: %v", err)
	} else {
		s.Store.ReplaceAlarms(alarms)
	}

	if stats, err := s.Client.Stats(ctx); err != nil {
		log.Printf("seeder: stats fetch failed: %v", err)
	} else {
		s.Store.ReplaceSystemStats(stats)
	}
	return nil
}

// Acknowledge round-trips an acknowledgement: backend first, local flag only
// on success.
func (s *Seeder) Acknowledge(ctx context.Context, alarmID string) error {
	if err := s.Client.Acknowledge(ctx, alarmID); err != nil {
		return err
	}
	s.Store.AcknowledgeLocal(alarmID)
	return nil
}

// RunStatsRefresh re-fetches the aggregate snapshot on a fixed tick until
// the context is cancelled. Blocks; run it in a goroutine.
func (s *Seeder) RunStatsRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.Client.Stats(ctx)
			if err != nil {
				log.Printf("seeder: stats refresh failed: %v", err)
				continue
			}
			s.Store.ReplaceSystemStats(stats)
		}
	}
}
