// Package archive mirrors accepted readings into InfluxDB. The mirror is
// optional and strictly downstream of the store: it subscribes to reading
// notifications and writes asynchronously, so a slow or absent database
// never back-pressures the ingestion path.
package archive

import (
	"log"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/internal/series"
	"github.com/shield-iot/dashboard/internal/store"
)

const measurement = "sensor_reading"

// Writer wraps the non-blocking WriteAPI and tracks the last asynchronous
// write error for the health endpoints.
type Writer struct {
	api api.WriteAPI

	mu      sync.RWMutex
	lastErr time.Time
	written int64

	unsub     func()
	unsubOnce sync.Once
}

// NewWriter starts the async error listener over w.
func NewWriter(w api.WriteAPI) *Writer {
	ww := &Writer{
		api:     w,
		lastErr: time.Now().Add(-24 * time.Hour), // "long ago" until a real error
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.mu.Unlock()
				log.Printf("archive: influx write error: %v", err)
			}
		}
	}()
	return ww
}

// Attach subscribes the writer to the store's reading notifications. Each
// notification carries the sensor record and its window; only the newest
// point is written (the rest was written when it arrived).
func (w *Writer) Attach(s *store.Store) {
	w.unsub = s.Subscribe(store.CategorySensorData, func(ev store.Event) {
		if ev.Sensor == nil || len(ev.Readings) == 0 {
			return
		}
		w.api.WritePoint(ReadingPoint(*ev.Sensor, ev.Readings[len(ev.Readings)-1]))
		w.mu.Lock()
		w.written++
		w.mu.Unlock()
	})
}

// Detach unsubscribes and flushes what is pending.
func (w *Writer) Detach() {
	w.unsubOnce.Do(func() {
		if w.unsub != nil {
			w.unsub()
		}
		w.api.Flush()
	})
}

// LastErrorAge reports how long the writer has gone without a write error.
// Nil-safe: a disabled archive reports a very old error.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// Written reports how many points were handed to the write API.
func (w *Writer) Written() int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.written
}

// ReadingPoint normalizes one reading into an influx point. Identity fields
// become tags, the value is the single field.
func ReadingPoint(sn model.Sensor, p series.Point) *write.Point {
	tags := map[string]string{
		"sensor_id":   sn.ID,
		"sensor_type": string(sn.Type),
	}
	if sn.Location != "" {
		tags["location"] = sn.Location
	}
	fields := map[string]interface{}{"value": p.Value}
	return influxdb2.NewPoint(measurement, tags, fields, p.Timestamp)
}
