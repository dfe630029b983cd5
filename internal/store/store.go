// Package store owns the authoritative in-process state of the dashboard:
// sensors, alarms, system stats and the push-channel connection status. Every
// mutation goes through a named operation that merges defensively (push
// events and request completions arrive in no guaranteed order) and then
// notifies the subscribers of the affected category.
package store

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/shield-iot/dashboard/internal/metrics"
	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/internal/series"
	"github.com/shield-iot/dashboard/internal/status"
)

const (
	// DefaultReadingsCap bounds the live per-sensor reading window.
	DefaultReadingsCap = 100
	// DefaultAlarmsCap bounds the alarm collection, newest first.
	DefaultAlarmsCap = 1000
)

// Category keys the publish/subscribe hub.
type Category string

const (
	CategorySensors       Category = "sensors"
	CategorySensorUpdated Category = "sensorUpdated"
	CategorySensorData    Category = "sensorData"
	CategoryAlarms        Category = "alarms"
	CategoryNewAlarm      Category = "newAlarm"
	CategoryStats         Category = "stats"
	CategoryConnection    Category = "connection"
)

// Event is delivered to subscribers. Only the fields relevant to the
// category are set; Sensor and Readings are copies, safe to keep.
type Event struct {
	Category   Category
	Sensor     *model.Sensor
	Readings   []series.Point
	Alarm      *model.Alarm
	Stats      *model.SystemStats
	Connection *model.ConnectionStatus
}

// Callback receives events for one subscribed category.
type Callback func(Event)

type subscriber struct {
	id int
	cb Callback
}

type sensorEntry struct {
	meta model.Sensor
	buf  *series.Buffer
}

// Config for a Store. Zero values fall back to the defaults above, a nil
// Deriver to a CriticalWins wall-clock deriver.
type Config struct {
	ReadingsCap int
	AlarmsCap   int
	Deriver     *status.Deriver
	Metrics     *metrics.Set
	Now         func() time.Time
}

// Store is safe for concurrent use; mutations are serialized by a mutex and
// notifications are delivered outside of it so callbacks may call back into
// the store.
type Store struct {
	mu      sync.Mutex
	sensors map[string]*sensorEntry
	alarms  []model.Alarm
	stats   model.SystemStats
	conn    model.ConnectionStatus

	readingsCap int
	alarmsCap   int
	deriver     *status.Deriver
	metrics     *metrics.Set
	now         func() time.Time

	subMu   sync.RWMutex
	subs    map[Category][]subscriber
	nextSub int
}

func New(cfg Config) *Store {
	if cfg.ReadingsCap <= 0 {
		cfg.ReadingsCap = DefaultReadingsCap
	}
	if cfg.AlarmsCap <= 0 {
		cfg.AlarmsCap = DefaultAlarmsCap
	}
	if cfg.Deriver == nil {
		cfg.Deriver = &status.Deriver{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		sensors:     make(map[string]*sensorEntry),
		conn:        model.ConnectionStatus{State: model.StateDisconnected, Message: "not connected"},
		readingsCap: cfg.ReadingsCap,
		alarmsCap:   cfg.AlarmsCap,
		deriver:     cfg.Deriver,
		metrics:     cfg.Metrics,
		now:         cfg.Now,
		subs:        make(map[Category][]subscriber),
	}
}

// Subscribe registers cb for a category and returns its unsubscribe
// function. Delivery order is registration order; a panicking callback is
// isolated and does not prevent delivery to the rest.
func (s *Store) Subscribe(cat Category, cb Callback) func() {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[cat] = append(s.subs[cat], subscriber{id: id, cb: cb})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		list := s.subs[cat]
		for i, sub := range list {
			if sub.id == id {
				s.subs[cat] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.RLock()
	list := append([]subscriber(nil), s.subs[ev.Category]...)
	s.subMu.RUnlock()
	for _, sub := range list {
		s.invoke(sub, ev)
	}
}

func (s *Store) invoke(sub subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("store: subscriber for %q panicked: %v", ev.Category, r)
			s.metrics.NotifyPanic()
		}
	}()
	sub.cb(ev)
}

// ReplaceSensors clears the sensor set and installs one entry per input with
// an empty reading window and status "active".
func (s *Store) ReplaceSensors(list []model.Sensor) {
	s.mu.Lock()
	s.sensors = make(map[string]*sensorEntry, len(list))
	for _, in := range list {
		if in.ID == "" {
			continue
		}
		st := in.Status
		if st == "" {
			st = model.StatusActive
		}
		s.sensors[in.ID] = &sensorEntry{
			meta: model.Sensor{ID: in.ID, Type: in.Type, Location: in.Location, Status: st},
			buf:  series.New(s.readingsCap),
		}
	}
	s.mu.Unlock()
	s.notify(Event{Category: CategorySensors})
}

// UpsertSensor merges the fields present in partial into the sensor,
// creating it with defaults when unknown. Value and readings are never
// touched here; a metadata-only sensor stays "active" until its first
// reading.
func (s *Store) UpsertSensor(partial model.Sensor) {
	if partial.ID == "" {
		return
	}
	s.mu.Lock()
	e, ok := s.sensors[partial.ID]
	if !ok {
		e = &sensorEntry{
			meta: model.Sensor{ID: partial.ID, Type: model.TypeOther, Status: model.StatusActive},
			buf:  series.New(s.readingsCap),
		}
		s.sensors[partial.ID] = e
	}
	if partial.Type != "" {
		e.meta.Type = partial.Type
	}
	if partial.Location != "" {
		e.meta.Location = partial.Location
	}
	if partial.Status != "" {
		e.meta.Status = partial.Status
	}
	snap := e.meta
	s.mu.Unlock()

	s.notify(Event{Category: CategorySensorUpdated, Sensor: &snap})
	s.notify(Event{Category: CategorySensors})
}

// ApplyReading records one pushed reading. A reading for an unregistered
// sensor is dropped, not queued. The raw value is sanitized (numeric strings
// parse, anything non-finite becomes "no data"); merge follows
// highest-timestamp-wins, so a late retransmission never regresses the
// sensor's last value, though it is still admitted to the reading window.
func (s *Store) ApplyReading(sensorID string, rawValue any, ts time.Time) {
	s.mu.Lock()
	e, ok := s.sensors[sensorID]
	if !ok {
		s.mu.Unlock()
		log.Printf("store: reading for unknown sensor %q dropped", sensorID)
		s.metrics.ReadingDropped()
		return
	}
	value := model.SanitizeValue(rawValue)
	if ts.IsZero() {
		ts = s.now()
	}
	if !e.meta.LastUpdate.After(ts) {
		e.meta.LastValue = value
		e.meta.LastUpdate = ts
	}
	if value != nil {
		e.buf.Append(series.Point{Value: *value, Timestamp: ts})
	}
	e.meta.Status = s.deriver.Derive(e.meta.Type, e.meta.LastValue, e.meta.LastUpdate)
	snap := e.meta
	pts := e.buf.Points()
	s.mu.Unlock()

	s.notify(Event{Category: CategorySensorData, Sensor: &snap, Readings: pts})
	s.notify(Event{Category: CategorySensors})
}

// SeedReadings merges fetched history into a sensor's reading window,
// deduplicating on timestamp so a resync after reconnect does not double
// points that also arrived by push. Unknown sensors are ignored.
func (s *Store) SeedReadings(sensorID string, pts []series.Point) {
	if len(pts) == 0 {
		return
	}
	s.mu.Lock()
	e, ok := s.sensors[sensorID]
	if !ok {
		s.mu.Unlock()
		return
	}
	merged := append(e.buf.Points(), pts...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	e.buf.Clear()
	var prev time.Time
	for i, p := range merged {
		if i > 0 && p.Timestamp.Equal(prev) {
			continue
		}
		e.buf.Append(p)
		prev = p.Timestamp
	}
	if last, ok := e.buf.Last(); ok && !e.meta.LastUpdate.After(last.Timestamp) {
		v := last.Value
		e.meta.LastValue = &v
		e.meta.LastUpdate = last.Timestamp
	}
	e.meta.Status = s.deriver.Derive(e.meta.Type, e.meta.LastValue, e.meta.LastUpdate)
	snap := e.meta
	all := e.buf.Points()
	s.mu.Unlock()

	s.notify(Event{Category: CategorySensorData, Sensor: &snap, Readings: all})
	s.notify(Event{Category: CategorySensors})
}

// ReplaceAlarms installs the list sorted newest-first by timestamp.
func (s *Store) ReplaceAlarms(list []model.Alarm) {
	cp := append([]model.Alarm(nil), list...)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].Timestamp.After(cp[j].Timestamp)
	})
	if len(cp) > s.alarmsCap {
		cp = cp[:s.alarmsCap]
	}
	s.mu.Lock()
	s.alarms = cp
	s.mu.Unlock()
	s.notify(Event{Category: CategoryAlarms})
}

// AddAlarm prepends the alarm (insertion order is arrival order, not
// timestamp order) and evicts the oldest beyond the cap.
func (s *Store) AddAlarm(a model.Alarm) {
	s.mu.Lock()
	s.alarms = append([]model.Alarm{a}, s.alarms...)
	if len(s.alarms) > s.alarmsCap {
		s.alarms = s.alarms[:s.alarmsCap]
	}
	s.mu.Unlock()
	s.notify(Event{Category: CategoryNewAlarm, Alarm: &a})
	s.notify(Event{Category: CategoryAlarms})
}

// AcknowledgeLocal flips the local acknowledged flag. Idempotent: a second
// call for the same id changes nothing and emits no notification.
func (s *Store) AcknowledgeLocal(alarmID string) {
	s.mu.Lock()
	changed := false
	for i := range s.alarms {
		if s.alarms[i].ID == alarmID {
			if !s.alarms[i].Acknowledged {
				s.alarms[i].Acknowledged = true
				changed = true
			}
			break
		}
	}
	s.mu.Unlock()
	if changed {
		s.notify(Event{Category: CategoryAlarms})
	}
}

// ReplaceSystemStats swaps the aggregate snapshot wholesale.
func (s *Store) ReplaceSystemStats(stats model.SystemStats) {
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	s.notify(Event{Category: CategoryStats, Stats: &stats})
}

// SetConnectionStatus records the push-channel state. Only the transport
// session calls this.
func (s *Store) SetConnectionStatus(cs model.ConnectionStatus) {
	s.mu.Lock()
	s.conn = cs
	s.mu.Unlock()
	s.notify(Event{Category: CategoryConnection, Connection: &cs})
}

// Sensors returns a copy of all sensors ordered by id.
func (s *Store) Sensors() []model.Sensor {
	s.mu.Lock()
	out := make([]model.Sensor, 0, len(s.sensors))
	for _, e := range s.sensors {
		out = append(out, e.meta)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sensor returns one sensor by id.
func (s *Store) Sensor(id string) (model.Sensor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sensors[id]
	if !ok {
		return model.Sensor{}, false
	}
	return e.meta, true
}

// Readings returns a copy of a sensor's reading window.
func (s *Store) Readings(id string) []series.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sensors[id]
	if !ok {
		return nil
	}
	return e.buf.Points()
}

// Alarms returns a copy of the alarm collection, newest first.
func (s *Store) Alarms() []model.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Alarm(nil), s.alarms...)
}

// Stats returns the current aggregate snapshot.
func (s *Store) Stats() model.SystemStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ConnectionStatus returns the current push-channel status.
func (s *Store) ConnectionStatus() model.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}
