package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/internal/store"
)

// DayBucket is the alarm count of one calendar day, split by level.
type DayBucket struct {
	Day    string // "2006-01-02"
	Counts map[model.AlarmLevel]int
}

// TimelineRenderer paints the alarm timeline from its day buckets.
type TimelineRenderer interface {
	UpdateTimeline(buckets []DayBucket)
}

// TimelineFeeder buckets alarms by calendar day and level. The full bucket
// map is rebuilt from the current alarm collection on every notification;
// alarm volume is capped, so correctness beats incremental bookkeeping.
type TimelineFeeder struct {
	store    *store.Store
	renderer TimelineRenderer

	mu        sync.Mutex
	buckets   []DayBucket
	unsub     func()
	unsubOnce sync.Once
}

func NewTimelineFeeder(st *store.Store, renderer TimelineRenderer) *TimelineFeeder {
	return &TimelineFeeder{store: st, renderer: renderer}
}

// Start subscribes to alarm notifications and renders the current state
// once. The subscription ends with ctx.
func (f *TimelineFeeder) Start(ctx context.Context) {
	f.unsub = f.store.Subscribe(store.CategoryAlarms, func(store.Event) { f.rebuild() })
	go func() {
		<-ctx.Done()
		f.Stop()
	}()
	f.rebuild()
}

// Stop detaches the feeder from the store.
func (f *TimelineFeeder) Stop() {
	f.unsubOnce.Do(func() {
		if f.unsub != nil {
			f.unsub()
		}
	})
}

func (f *TimelineFeeder) rebuild() {
	byDay := make(map[string]map[model.AlarmLevel]int)
	for _, a := range f.store.Alarms() {
		if a.Timestamp.IsZero() {
			continue
		}
		day := a.Timestamp.Format("2006-01-02")
		if byDay[day] == nil {
			byDay[day] = make(map[model.AlarmLevel]int)
		}
		byDay[day][a.Level]++
	}

	buckets := make([]DayBucket, 0, len(byDay))
	for day, counts := range byDay {
		buckets = append(buckets, DayBucket{Day: day, Counts: counts})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Day < buckets[j].Day })

	f.mu.Lock()
	f.buckets = buckets
	f.mu.Unlock()

	if f.renderer != nil {
		f.renderer.UpdateTimeline(buckets)
	}
}

// Buckets returns the current day buckets, oldest day first.
func (f *TimelineFeeder) Buckets() []DayBucket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DayBucket(nil), f.buckets...)
}
