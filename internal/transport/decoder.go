package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/shield-iot/dashboard/internal/model"
)

// handleMessage routes by topic and feeds the sink. Malformed payloads are
// logged and dropped; nothing on this path may take the pipeline down.
func (s *Session) handleMessage(_ mqtt.Client, m mqtt.Message) {
	if err := s.route(m.Topic(), m.Payload()); err != nil {
		s.metrics.EventInvalid()
		log.Printf("transport: drop message on %s: %v", m.Topic(), err)
	}
}

func (s *Session) route(topic string, payload []byte) error {
	switch {
	case strings.HasPrefix(topic, "sensors/") && strings.HasSuffix(topic, "/data"):
		return s.decodeSensorUpdate(topic, payload)
	case strings.HasPrefix(topic, "alarms/"):
		return s.decodeAlarmUpdate(topic, payload)
	case topic == TopicSensorConnected:
		return s.decodeSensorConnected(payload)
	default:
		return nil // not ours
	}
}

func (s *Session) decodeSensorUpdate(topic string, payload []byte) error {
	var ev model.SensorUpdateEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("sensor_update: %w", err)
	}
	// producers put the id in the topic, relays put it in the payload
	if ev.SensorID == "" {
		ev.SensorID = topicSegment(topic, 1)
	}
	if ev.SensorID == "" {
		return fmt.Errorf("sensor_update: missing sensor id")
	}
	s.metrics.EventReceived("sensor_update")
	s.sink.HandleSensorUpdate(ev)
	return nil
}

func (s *Session) decodeAlarmUpdate(topic string, payload []byte) error {
	var ev model.AlarmUpdateEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("alarm_update: %w", err)
	}
	if ev.SensorID == "" {
		ev.SensorID = topicSegment(topic, 1)
		ev.Alarm.SensorID = ev.SensorID
	}
	if ev.SensorID == "" {
		return fmt.Errorf("alarm_update: missing sensor id")
	}
	// retransmissions of the same alarm id must not duplicate the record
	if ev.Alarm.ID != "" && !s.dedupe.ShouldProcess("alarm|"+ev.Alarm.ID) {
		s.metrics.EventDuplicate()
		return nil
	}
	if ev.Alarm.ID == "" {
		ev.Alarm.ID = uuid.NewString()
	}
	s.metrics.EventReceived("alarm_update")
	s.sink.HandleAlarmUpdate(ev)
	return nil
}

func (s *Session) decodeSensorConnected(payload []byte) error {
	var ev model.SensorConnectedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("sensor_connected: %w", err)
	}
	if ev.SensorID == "" {
		return fmt.Errorf("sensor_connected: missing sensor id")
	}
	s.metrics.EventReceived("sensor_connected")
	s.sink.HandleSensorConnected(ev)
	return nil
}

// topicSegment returns the nth slash-separated part of a topic, or "".
func topicSegment(topic string, n int) string {
	parts := strings.Split(topic, "/")
	if n < len(parts) {
		return parts[n]
	}
	return ""
}
