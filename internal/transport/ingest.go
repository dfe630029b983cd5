package transport

import (
	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/internal/store"
)

// StoreSink maps decoded push events onto store operations.
type StoreSink struct {
	Store *store.Store
}

var _ Sink = StoreSink{}

// HandleSensorUpdate applies the reading. The store drops it when the sensor
// id is not registered yet; sensor creation happens only through snapshots
// and sensor_connected events.
func (s StoreSink) HandleSensorUpdate(ev model.SensorUpdateEvent) {
	s.Store.ApplyReading(ev.SensorID, ev.Value, ev.Timestamp)
}

// HandleAlarmUpdate prepends the alarm.
func (s StoreSink) HandleAlarmUpdate(ev model.AlarmUpdateEvent) {
	s.Store.AddAlarm(ev.Alarm)
}

// HandleSensorConnected upserts metadata only; value and readings are left
// alone.
func (s StoreSink) HandleSensorConnected(ev model.SensorConnectedEvent) {
	s.Store.UpsertSensor(model.Sensor{
		ID:       ev.SensorID,
		Type:     model.ParseSensorType(ev.Type),
		Location: ev.Location,
		Status:   model.SensorStatus(ev.Status),
	})
}
