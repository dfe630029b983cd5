package feed

import (
	"context"
	"sync"
	"time"

	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/internal/store"
)

// Card is the per-sensor summary shown on the dashboard grid.
type Card struct {
	SensorID  string
	Type      model.SensorType
	Location  string
	Status    model.SensorStatus
	LastValue *float64
	Age       time.Duration // since the last accepted reading; < 0 if none
}

// Overview is everything the dashboard header and card grid render.
type Overview struct {
	Cards      []Card
	Stats      model.SystemStats
	Connection model.ConnectionStatus
}

// OverviewRenderer paints the card grid.
type OverviewRenderer interface {
	UpdateOverview(Overview)
}

// CardFeeder renders the sensor cards. Besides reacting to sensor, stats and
// connection notifications it re-renders on a clock tick, so the displayed
// reading ages advance without new events.
type CardFeeder struct {
	store    *store.Store
	renderer OverviewRenderer
	now      func() time.Time

	mu        sync.Mutex
	unsubs    []func()
	unsubOnce sync.Once
}

func NewCardFeeder(st *store.Store, renderer OverviewRenderer) *CardFeeder {
	return &CardFeeder{store: st, renderer: renderer, now: time.Now}
}

// Run subscribes, renders once, then re-renders on every tick until ctx is
// cancelled. Blocks; run it in a goroutine.
func (f *CardFeeder) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = time.Second
	}
	onEvent := func(store.Event) { f.render() }
	f.mu.Lock()
	f.unsubs = []func(){
		f.store.Subscribe(store.CategorySensors, onEvent),
		f.store.Subscribe(store.CategoryStats, onEvent),
		f.store.Subscribe(store.CategoryConnection, onEvent),
	}
	f.mu.Unlock()
	defer f.Stop()

	f.render()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.render()
		}
	}
}

// Stop detaches the feeder from the store.
func (f *CardFeeder) Stop() {
	f.unsubOnce.Do(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, u := range f.unsubs {
			u()
		}
	})
}

func (f *CardFeeder) render() {
	if f.renderer == nil {
		return
	}
	f.renderer.UpdateOverview(f.Snapshot())
}

// Snapshot assembles the current overview.
func (f *CardFeeder) Snapshot() Overview {
	now := f.now()
	sensors := f.store.Sensors()
	cards := make([]Card, 0, len(sensors))
	for _, sn := range sensors {
		age := time.Duration(-1)
		if !sn.LastUpdate.IsZero() {
			age = now.Sub(sn.LastUpdate)
		}
		cards = append(cards, Card{
			SensorID:  sn.ID,
			Type:      sn.Type,
			Location:  sn.Location,
			Status:    sn.Status,
			LastValue: sn.LastValue,
			Age:       age,
		})
	}
	return Overview{
		Cards:      cards,
		Stats:      f.store.Stats(),
		Connection: f.store.ConnectionStatus(),
	}
}
