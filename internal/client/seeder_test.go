package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/internal/status"
	"github.com/shield-iot/dashboard/internal/store"
)

func seederBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sensors", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"sensor_id":"HUMID_001","sensor_type":"humidity","location":"Basement","status":"active"},
			{"sensor_id":"STRESS_001","sensor_type":"stress","location":"Roof","status":"active"}
		]`))
	})
	mux.HandleFunc("/api/sensors/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "HUMID_001") {
			w.Write([]byte(`[
				{"value":44.0,"timestamp":"2026-03-01T11:59:00Z"},
				{"value":43.0,"timestamp":"2026-03-01T11:58:00Z"}
			]`))
			return
		}
		http.Error(w, "history unavailable", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/alarms", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"a-1","sensor_id":"STRESS_001","alarm_type":"threshold","level":"critical","message":"stress 91.2","timestamp":"2026-03-01T11:30:00Z"}
		]`))
	})
	mux.HandleFunc("/api/alarms/a-1/acknowledge", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	})
	mux.HandleFunc("/api/dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"active_sensors":2,"unacknowledged_alarms":1,"today_readings":120}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestResyncSeedsFreshStore(t *testing.T) {
	srv := seederBackend(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	st := store.New(store.Config{Deriver: &status.Deriver{Now: clock}, Now: clock})
	s := &Seeder{Client: New(srv.URL, time.Second), Store: st, HistoryLimit: 10, AlarmLimit: 10}

	require.NoError(t, s.Resync(context.Background()))

	sensors := st.Sensors()
	require.Len(t, sensors, 2)
	assert.Equal(t, "HUMID_001", sensors[0].ID)

	// history was seeded and updated the sensor from its newest point
	pts := st.Readings("HUMID_001")
	require.Len(t, pts, 2)
	require.NotNil(t, sensors[0].LastValue)
	assert.Equal(t, 44.0, *sensors[0].LastValue)

	// the per-sensor history failure did not abort the resync
	assert.Empty(t, st.Readings("STRESS_001"))

	alarms := st.Alarms()
	require.Len(t, alarms, 1)
	assert.Equal(t, "a-1", alarms[0].ID)

	assert.Equal(t, 1, st.Stats().UnacknowledgedAlarms)
}

func TestResyncMergesIntoPopulatedStore(t *testing.T) {
	srv := seederBackend(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	st := store.New(store.Config{Deriver: &status.Deriver{Now: clock}, Now: clock})
	s := &Seeder{Client: New(srv.URL, time.Second), Store: st, HistoryLimit: 10, AlarmLimit: 10}

	// a push event landed before the snapshot completed
	st.UpsertSensor(model.Sensor{ID: "HUMID_001", Type: model.TypeHumidity})
	st.ApplyReading("HUMID_001", 48.0, now)

	require.NoError(t, s.Resync(context.Background()))

	sn, ok := st.Sensor("HUMID_001")
	require.True(t, ok)
	// the snapshot is older than the push event; the live value survives
	require.NotNil(t, sn.LastValue)
	assert.Equal(t, 48.0, *sn.LastValue)
	assert.Equal(t, "Basement", sn.Location)

	// seeded history merged with the live reading
	assert.Len(t, st.Readings("HUMID_001"), 3)
}

func TestResyncFailsWhenSnapshotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	st := store.New(store.Config{})
	s := &Seeder{Client: New(srv.URL, time.Second), Store: st}
	assert.Error(t, s.Resync(context.Background()))
	assert.Empty(t, st.Sensors())
}

func TestSeederAcknowledgeRoundTrip(t *testing.T) {
	srv := seederBackend(t)
	st := store.New(store.Config{})
	st.ReplaceAlarms([]model.Alarm{{ID: "a-1", SensorID: "STRESS_001", Level: model.LevelCritical, Timestamp: time.Now()}})
	s := &Seeder{Client: New(srv.URL, time.Second), Store: st}

	require.NoError(t, s.Acknowledge(context.Background(), "a-1"))
	alarms := st.Alarms()
	require.Len(t, alarms, 1)
	assert.True(t, alarms[0].Acknowledged)
}

func TestSeederAcknowledgeKeepsLocalFlagOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	st := store.New(store.Config{})
	st.ReplaceAlarms([]model.Alarm{{ID: "a-1", SensorID: "STRESS_001", Level: model.LevelCritical, Timestamp: time.Now()}})
	s := &Seeder{Client: New(srv.URL, time.Second), Store: st}

	require.Error(t, s.Acknowledge(context.Background(), "a-1"))
	assert.False(t, st.Alarms()[0].Acknowledged)
}
