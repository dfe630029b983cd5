package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/internal/series"
	"github.com/shield-iot/dashboard/internal/status"
)

// clock is a settable time source shared by the store and its deriver.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*Store, *clock) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(Config{
		Deriver: &status.Deriver{Now: c.now},
		Now:     c.now,
	})
	return s, c
}

func seedSensor(s *Store, id string, typ model.SensorType) {
	s.ReplaceSensors([]model.Sensor{{ID: id, Type: typ, Location: "A"}})
}

func TestReplaceSensorsInstallsDefaults(t *testing.T) {
	s, _ := newTestStore()
	s.ReplaceSensors([]model.Sensor{
		{ID: "S1", Type: model.TypeHumidity, Location: "A"},
		{ID: "S2", Type: model.TypeStress, Location: "B"},
	})

	sensors := s.Sensors()
	require.Len(t, sensors, 2)
	for _, sn := range sensors {
		assert.Equal(t, model.StatusActive, sn.Status)
		assert.Nil(t, sn.LastValue)
		assert.Empty(t, s.Readings(sn.ID))
	}

	// wholesale replace clears previous entries and their buffers
	s.ApplyReading("S1", 50.0, time.Time{})
	s.ReplaceSensors([]model.Sensor{{ID: "S1", Type: model.TypeHumidity}})
	assert.Empty(t, s.Readings("S1"))
	sn, ok := s.Sensor("S1")
	require.True(t, ok)
	assert.Equal(t, model.StatusActive, sn.Status)
}

func TestUpsertSensorMergesPartialFields(t *testing.T) {
	s, _ := newTestStore()
	seedSensor(s, "S1", model.TypeHumidity)
	s.ApplyReading("S1", 50.0, time.Time{})

	// location-only update must not touch value or readings
	s.UpsertSensor(model.Sensor{ID: "S1", Location: "Basement"})
	sn, _ := s.Sensor("S1")
	assert.Equal(t, "Basement", sn.Location)
	assert.Equal(t, model.TypeHumidity, sn.Type)
	require.NotNil(t, sn.LastValue)
	assert.Equal(t, 50.0, *sn.LastValue)
	assert.Len(t, s.Readings("S1"), 1)

	// unknown id creates with defaults
	s.UpsertSensor(model.Sensor{ID: "S9", Type: model.TypeVibration})
	sn, ok := s.Sensor("S9")
	require.True(t, ok)
	assert.Equal(t, model.StatusActive, sn.Status)
	assert.Nil(t, sn.LastValue)
}

func TestApplyReadingUnknownSensorDropped(t *testing.T) {
	s, _ := newTestStore()
	var dataEvents int
	s.Subscribe(CategorySensorData, func(Event) { dataEvents++ })

	s.ApplyReading("GHOST", 50.0, time.Time{})
	assert.Zero(t, dataEvents)
	assert.Empty(t, s.Sensors())
}

func TestApplyReadingSanitizes(t *testing.T) {
	s, c := newTestStore()
	seedSensor(s, "S1", model.TypeHumidity)

	s.ApplyReading("S1", "42.5", c.t)
	sn, _ := s.Sensor("S1")
	require.NotNil(t, sn.LastValue)
	assert.Equal(t, 42.5, *sn.LastValue)
	assert.Len(t, s.Readings("S1"), 1)

	// unparsable value becomes "no data": no point appended, status offline
	c.advance(time.Second)
	s.ApplyReading("S1", "garbage", c.t)
	sn, _ = s.Sensor("S1")
	assert.Nil(t, sn.LastValue)
	assert.Equal(t, model.StatusOffline, sn.Status)
	assert.Len(t, s.Readings("S1"), 1)
}

func TestApplyReadingBufferCap(t *testing.T) {
	s, c := newTestStore()
	seedSensor(s, "S1", model.TypeHumidity)

	for i := 0; i < 150; i++ {
		s.ApplyReading("S1", 50.0, c.t)
		c.advance(time.Millisecond)
	}
	pts := s.Readings("S1")
	require.Len(t, pts, DefaultReadingsCap)
	// newest 100, in time order
	for i := 1; i < len(pts); i++ {
		assert.False(t, pts[i].Timestamp.Before(pts[i-1].Timestamp))
	}
}

func TestApplyReadingHighestTimestampWins(t *testing.T) {
	s, c := newTestStore()
	seedSensor(s, "S1", model.TypeHumidity)

	tNew := c.t
	s.ApplyReading("S1", 50.0, tNew)

	// a retransmission with an older embedded timestamp arrives later in
	// real time; it must not regress the sensor state
	s.ApplyReading("S1", 85.0, tNew.Add(-10*time.Second))
	sn, _ := s.Sensor("S1")
	require.NotNil(t, sn.LastValue)
	assert.Equal(t, 50.0, *sn.LastValue)
	assert.Equal(t, tNew, sn.LastUpdate)
	assert.Equal(t, model.StatusNormal, sn.Status)

	// the late reading still lands in the window
	assert.Len(t, s.Readings("S1"), 2)
}

func TestAlarmCapEnforced(t *testing.T) {
	s, c := newTestStore()
	for i := 0; i < 1001; i++ {
		s.AddAlarm(model.Alarm{ID: fmt.Sprintf("a%d", i), Timestamp: c.t.Add(time.Duration(i) * time.Second)})
	}
	alarms := s.Alarms()
	require.Len(t, alarms, DefaultAlarmsCap)
	// newest first; the very first alarm was evicted
	assert.Equal(t, "a1000", alarms[0].ID)
	assert.Equal(t, "a1", alarms[len(alarms)-1].ID)
}

func TestReplaceAlarmsSortsNewestFirst(t *testing.T) {
	s, c := newTestStore()
	s.ReplaceAlarms([]model.Alarm{
		{ID: "old", Timestamp: c.t.Add(-time.Hour)},
		{ID: "new", Timestamp: c.t},
		{ID: "mid", Timestamp: c.t.Add(-time.Minute)},
	})
	alarms := s.Alarms()
	require.Len(t, alarms, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{alarms[0].ID, alarms[1].ID, alarms[2].ID})
}

func TestAcknowledgeLocalIdempotent(t *testing.T) {
	s, c := newTestStore()
	s.AddAlarm(model.Alarm{ID: "a1", Timestamp: c.t})

	var notifications int
	s.Subscribe(CategoryAlarms, func(Event) { notifications++ })

	s.AcknowledgeLocal("a1")
	first := s.Alarms()
	require.True(t, first[0].Acknowledged)
	assert.Equal(t, 1, notifications)

	// second call: same state, no notification
	s.AcknowledgeLocal("a1")
	assert.Equal(t, first, s.Alarms())
	assert.Equal(t, 1, notifications)

	// unknown id: no-op
	s.AcknowledgeLocal("nope")
	assert.Equal(t, 1, notifications)
}

func TestSubscribeDeliveryOrderAndUnsubscribe(t *testing.T) {
	s, _ := newTestStore()
	var order []string
	unsubA := s.Subscribe(CategorySensors, func(Event) { order = append(order, "a") })
	s.Subscribe(CategorySensors, func(Event) { order = append(order, "b") })

	s.ReplaceSensors(nil)
	assert.Equal(t, []string{"a", "b"}, order)

	unsubA()
	order = nil
	s.ReplaceSensors(nil)
	assert.Equal(t, []string{"b"}, order)

	// unsubscribing twice is harmless
	unsubA()
}

func TestSubscriberPanicIsolated(t *testing.T) {
	s, _ := newTestStore()
	var reached bool
	s.Subscribe(CategorySensors, func(Event) { panic("boom") })
	s.Subscribe(CategorySensors, func(Event) { reached = true })

	assert.NotPanics(t, func() { s.ReplaceSensors(nil) })
	assert.True(t, reached)

	// bookkeeping survives: both still registered, panic still isolated
	reached = false
	assert.NotPanics(t, func() { s.ReplaceSensors(nil) })
	assert.True(t, reached)
}

func TestNotifySequenceForNewAlarm(t *testing.T) {
	s, c := newTestStore()
	var order []string
	s.Subscribe(CategoryNewAlarm, func(ev Event) {
		require.NotNil(t, ev.Alarm)
		order = append(order, "newAlarm")
	})
	s.Subscribe(CategoryAlarms, func(Event) { order = append(order, "alarms") })

	s.AddAlarm(model.Alarm{ID: "a1", Timestamp: c.t})
	assert.Equal(t, []string{"newAlarm", "alarms"}, order)
}

func TestSeedReadingsMergesAndDeduplicates(t *testing.T) {
	s, c := newTestStore()
	seedSensor(s, "S1", model.TypeHumidity)

	live := c.t
	s.ApplyReading("S1", 50.0, live)

	// fetched history overlaps the live point and adds older ones
	s.SeedReadings("S1", []series.Point{
		{Value: 48, Timestamp: live.Add(-2 * time.Minute)},
		{Value: 50, Timestamp: live},
		{Value: 49, Timestamp: live.Add(-time.Minute)},
	})

	pts := s.Readings("S1")
	require.Len(t, pts, 3)
	assert.Equal(t, 48.0, pts[0].Value)
	assert.Equal(t, 50.0, pts[2].Value)

	// live state was not regressed
	sn, _ := s.Sensor("S1")
	assert.Equal(t, live, sn.LastUpdate)
}

func TestStatsAndConnectionReplaceWholesale(t *testing.T) {
	s, _ := newTestStore()
	var stats, conn int
	s.Subscribe(CategoryStats, func(ev Event) { require.NotNil(t, ev.Stats); stats++ })
	s.Subscribe(CategoryConnection, func(ev Event) { require.NotNil(t, ev.Connection); conn++ })

	s.ReplaceSystemStats(model.SystemStats{ActiveSensors: 6})
	assert.Equal(t, 6, s.Stats().ActiveSensors)
	assert.Equal(t, 1, stats)

	s.SetConnectionStatus(model.ConnectionStatus{State: model.StateConnected, Message: "connected"})
	assert.Equal(t, model.StateConnected, s.ConnectionStatus().State)
	assert.Equal(t, 1, conn)
}

func TestStalenessSweepFlipsOffline(t *testing.T) {
	s, c := newTestStore()
	seedSensor(s, "S1", model.TypeHumidity)
	s.ApplyReading("S1", 50.0, c.t)
	sn, _ := s.Sensor("S1")
	require.Equal(t, model.StatusNormal, sn.Status)

	// inside the staleness window nothing changes
	c.advance(299 * time.Second)
	assert.Zero(t, s.Sweep())

	// past it the sensor goes offline from the tick alone
	c.advance(2 * time.Second)
	var notified bool
	s.Subscribe(CategorySensors, func(Event) { notified = true })
	assert.Equal(t, 1, s.Sweep())
	sn, _ = s.Sensor("S1")
	assert.Equal(t, model.StatusOffline, sn.Status)
	assert.True(t, notified)

	// metadata-only sensors keep their placeholder status
	s.UpsertSensor(model.Sensor{ID: "S2", Type: model.TypeStress})
	c.advance(time.Hour)
	s.Sweep()
	sn, _ = s.Sensor("S2")
	assert.Equal(t, model.StatusActive, sn.Status)
}

// The end-to-end scenario: critical reading, recovery, then silent decay to
// offline purely from the clock.
func TestSensorLifecycleEndToEnd(t *testing.T) {
	s, c := newTestStore()
	s.ReplaceSensors([]model.Sensor{{ID: "S1", Type: model.TypeHumidity, Location: "A"}})

	s.ApplyReading("S1", 85.0, c.t)
	sn, _ := s.Sensor("S1")
	assert.Equal(t, model.StatusCritical, sn.Status)

	c.advance(time.Second)
	s.ApplyReading("S1", 50.0, c.t)
	sn, _ = s.Sensor("S1")
	assert.Equal(t, model.StatusNormal, sn.Status)

	c.advance(301 * time.Second)
	s.Sweep()
	sn, _ = s.Sensor("S1")
	assert.Equal(t, model.StatusOffline, sn.Status)
}
