// Package feed turns store notifications into rendering instructions. The
// feeders subscribe to store categories, keep their own chart-side buffers,
// and throttle per-series updates so event arrival rate never dictates
// redraw rate. The actual widgets live behind the renderer interfaces.
package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shield-iot/dashboard/internal/metrics"
	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/internal/series"
	"github.com/shield-iot/dashboard/internal/store"
)

// DefaultThrottle is the minimum gap between applied chart updates for one
// sensor. Events below the rate still reach the store, only the redraw is
// suppressed.
const DefaultThrottle = 1000 * time.Millisecond

// RangeOption selects the visualized date range, which in turn bounds the
// dataset size (approximating fixed-interval sampling).
type RangeOption string

const (
	RangeDay    RangeOption = "day"
	RangeWeek   RangeOption = "week"
	RangeMonth  RangeOption = "month"
	RangeCustom RangeOption = "custom"
)

// PointCap maps a range selection to its dataset bound.
func PointCap(r RangeOption) int {
	switch r {
	case RangeDay:
		return 288
	case RangeWeek:
		return 2016
	case RangeMonth:
		return 8640
	default:
		return 10000
	}
}

// Dataset is one sensor's series as handed to the chart widget.
type Dataset struct {
	SensorID string
	Label    string
	Points   []series.Point
}

// ChartRenderer paints one chart (one per sensor type) from its datasets.
type ChartRenderer interface {
	UpdateChart(chartID string, datasets []Dataset, animate bool)
}

// HistoryFetcher pulls persisted readings for full reloads.
type HistoryFetcher interface {
	History(ctx context.Context, sensorID string, limit int) ([]series.Point, error)
}

type chartDataset struct {
	label string
	buf   *series.Buffer
}

// ChartFeeder maintains one dataset per sensor, grouped by sensor type into
// one chart per type. Datasets are created lazily on first event.
type ChartFeeder struct {
	store    *store.Store
	history  HistoryFetcher
	renderer ChartRenderer
	metrics  *metrics.Set
	throttle time.Duration
	now      func() time.Time

	mu          sync.Mutex
	active      bool
	rng         RangeOption
	filter      map[string]bool // sensor ids; nil lets everything through
	datasets    map[model.SensorType]map[string]*chartDataset
	lastApplied map[string]time.Time
	unsub       func()
	unsubOnce   sync.Once
}

// NewChartFeeder wires a feeder; it does nothing until Start.
func NewChartFeeder(st *store.Store, history HistoryFetcher, renderer ChartRenderer, throttle time.Duration, m *metrics.Set) *ChartFeeder {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	return &ChartFeeder{
		store:       st,
		history:     history,
		renderer:    renderer,
		metrics:     m,
		throttle:    throttle,
		now:         time.Now,
		active:      true,
		rng:         RangeDay,
		datasets:    make(map[model.SensorType]map[string]*chartDataset),
		lastApplied: make(map[string]time.Time),
	}
}

// Start subscribes to reading notifications; the subscription ends when ctx
// is cancelled (or on Stop, whichever comes first).
func (f *ChartFeeder) Start(ctx context.Context) {
	f.unsub = f.store.Subscribe(store.CategorySensorData, f.onReading)
	go func() {
		<-ctx.Done()
		f.Stop()
	}()
}

// Stop detaches the feeder from the store.
func (f *ChartFeeder) Stop() {
	f.unsubOnce.Do(func() {
		if f.unsub != nil {
			f.unsub()
		}
	})
}

// SetActive marks whether the chart view is on screen. An inactive feeder
// drops events early but keeps its datasets.
func (f *ChartFeeder) SetActive(active bool) {
	f.mu.Lock()
	f.active = active
	f.mu.Unlock()
}

// onReading applies one store notification to the chart state: filter,
// throttle, append, re-sort, truncate, redraw without animation.
func (f *ChartFeeder) onReading(ev store.Event) {
	sn := ev.Sensor
	if sn == nil || len(ev.Readings) == 0 {
		return
	}
	point := ev.Readings[len(ev.Readings)-1]

	f.mu.Lock()
	if !f.active || (f.filter != nil && !f.filter[sn.ID]) {
		f.mu.Unlock()
		return
	}
	now := f.now()
	if last, ok := f.lastApplied[sn.ID]; ok && now.Sub(last) < f.throttle {
		f.mu.Unlock()
		f.metrics.ChartThrottled()
		return
	}
	f.lastApplied[sn.ID] = now

	ds := f.ensureLocked(sn.Type, sn.ID, sn.Location)
	if last, ok := ds.buf.Last(); ok && last.Timestamp.Equal(point.Timestamp) {
		// the store notifies even when the reading carried no new point;
		// don't double the newest one
		f.mu.Unlock()
		return
	}
	ds.buf.Append(point)
	ds.buf.SortByTime()
	snapshot := f.snapshotLocked(sn.Type)
	f.mu.Unlock()

	f.renderer.UpdateChart(string(sn.Type), snapshot, false)
}

// SetRange switches the date-range selection and reloads every chart from
// fresh history.
func (f *ChartFeeder) SetRange(ctx context.Context, r RangeOption) error {
	f.mu.Lock()
	f.rng = r
	f.mu.Unlock()
	return f.Reload(ctx)
}

// SetFilter restricts the feeder to the given sensor ids (nil or empty
// clears the filter) and reloads.
func (f *ChartFeeder) SetFilter(ctx context.Context, sensorIDs []string) error {
	f.mu.Lock()
	if len(sensorIDs) == 0 {
		f.filter = nil
	} else {
		f.filter = make(map[string]bool, len(sensorIDs))
		for _, id := range sensorIDs {
			f.filter[id] = true
		}
	}
	f.mu.Unlock()
	return f.Reload(ctx)
}

// Reload discards all datasets and repopulates them from a fresh history
// fetch, bounded by the active range's point cap. On any fetch error the
// previous datasets stay in place.
func (f *ChartFeeder) Reload(ctx context.Context) error {
	f.mu.Lock()
	limit := PointCap(f.rng)
	filter := f.filter
	f.mu.Unlock()

	sensors := f.store.Sensors()
	next := make(map[model.SensorType]map[string]*chartDataset)
	for _, sn := range sensors {
		if filter != nil && !filter[sn.ID] {
			continue
		}
		pts, err := f.history.History(ctx, sn.ID, limit)
		if err != nil {
			return fmt.Errorf("reload %s: %w", sn.ID, err)
		}
		ds := &chartDataset{label: datasetLabel(sn.ID, sn.Location), buf: series.New(limit)}
		for _, p := range pts {
			ds.buf.Append(p)
		}
		ds.buf.SortByTime()
		if next[sn.Type] == nil {
			next[sn.Type] = make(map[string]*chartDataset)
		}
		next[sn.Type][sn.ID] = ds
	}

	f.mu.Lock()
	f.datasets = next
	f.lastApplied = make(map[string]time.Time)
	types := make([]model.SensorType, 0, len(next))
	snapshots := make(map[model.SensorType][]Dataset, len(next))
	for typ := range next {
		types = append(types, typ)
		snapshots[typ] = f.snapshotLocked(typ)
	}
	f.mu.Unlock()

	for _, typ := range types {
		f.renderer.UpdateChart(string(typ), snapshots[typ], false)
	}
	return nil
}

// Datasets returns a copy of the datasets currently backing one chart,
// ordered by sensor id.
func (f *ChartFeeder) Datasets(typ model.SensorType) []Dataset {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked(typ)
}

func (f *ChartFeeder) ensureLocked(typ model.SensorType, sensorID, location string) *chartDataset {
	byID := f.datasets[typ]
	if byID == nil {
		byID = make(map[string]*chartDataset)
		f.datasets[typ] = byID
	}
	ds := byID[sensorID]
	if ds == nil {
		ds = &chartDataset{label: datasetLabel(sensorID, location), buf: series.New(PointCap(f.rng))}
		byID[sensorID] = ds
	}
	return ds
}

func (f *ChartFeeder) snapshotLocked(typ model.SensorType) []Dataset {
	byID := f.datasets[typ]
	out := make([]Dataset, 0, len(byID))
	for id, ds := range byID {
		out = append(out, Dataset{SensorID: id, Label: ds.label, Points: ds.buf.Points()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SensorID < out[j].SensorID })
	return out
}

func datasetLabel(sensorID, location string) string {
	if location == "" {
		return sensorID
	}
	return sensorID + " (" + location + ")"
}
