package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Push-event payloads arrive with inconsistent field shapes across producers
// (reading under "data.value" or bare "value", alarm fields nested under
// "alarm" or flat, numbers as strings). Decoding is therefore tolerant:
// everything goes through a map and missing or malformed fields degrade to
// zero values instead of errors.

// SensorUpdateEvent is a pushed reading. Value is nil when the payload
// carried no usable number ("no data").
type SensorUpdateEvent struct {
	SensorID  string
	Value     *float64
	Type      string
	Location  string
	Timestamp time.Time
}

func (e *SensorUpdateEvent) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if v, ok := m["sensor_id"].(string); ok {
		e.SensorID = v
	}
	// reading fields may sit at the top level or under "data"
	payload := m
	if d, ok := m["data"].(map[string]any); ok {
		payload = d
	}
	e.Value = SanitizeValue(payload["value"])
	if v, ok := payload["type"].(string); ok {
		e.Type = v
	}
	if v, ok := payload["location"].(string); ok {
		e.Location = v
	}
	// prefer the inner timestamp, fall back to the envelope's
	e.Timestamp = ParseTimestamp(payload["timestamp"])
	if e.Timestamp.IsZero() {
		e.Timestamp = ParseTimestamp(m["timestamp"])
	}
	return nil
}

// AlarmUpdateEvent is a pushed alarm, either as an envelope with a nested
// "alarm" object or as a flat record.
type AlarmUpdateEvent struct {
	SensorID string
	Alarm    Alarm
}

func (e *AlarmUpdateEvent) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if v, ok := m["sensor_id"].(string); ok {
		e.SensorID = v
	}
	payload := m
	if a, ok := m["alarm"].(map[string]any); ok {
		payload = a
	}
	e.Alarm = Alarm{
		ID:       stringField(payload["id"]),
		SensorID: e.SensorID,
		Message:  stringField(payload["message"]),
	}
	if v, ok := payload["sensor_id"].(string); ok && v != "" {
		e.Alarm.SensorID = v
		if e.SensorID == "" {
			e.SensorID = v
		}
	}
	if v, ok := payload["type"].(string); ok {
		e.Alarm.Type = v
	} else if v, ok := payload["alarm_type"].(string); ok {
		e.Alarm.Type = v
	}
	e.Alarm.Level = ParseAlarmLevel(stringField(payload["level"]))
	if v, ok := payload["acknowledged"].(bool); ok {
		e.Alarm.Acknowledged = v
	}
	e.Alarm.Timestamp = ParseTimestamp(payload["timestamp"])
	if e.Alarm.Timestamp.IsZero() {
		e.Alarm.Timestamp = ParseTimestamp(m["timestamp"])
	}
	return nil
}

// SensorConnectedEvent announces a sensor coming online; metadata only,
// never a reading.
type SensorConnectedEvent struct {
	SensorID string `json:"sensor_id"`
	Type     string `json:"sensor_type"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

// SanitizeValue coerces a raw reading value into a finite float64. Numeric
// strings are parsed; nil, non-finite and unparsable inputs become nil,
// never NaN.
func SanitizeValue(raw any) *float64 {
	var f float64
	switch v := raw.(type) {
	case *float64:
		if v == nil {
			return nil
		}
		f = *v
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		x, err := v.Float64()
		if err != nil {
			return nil
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = x
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999", // python isoformat without zone
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC3339 strings, zone-less ISO strings as produced
// by the backend, and unix numbers (seconds, or milliseconds when the
// magnitude says so). Unusable input yields the zero time.
func ParseTimestamp(raw any) time.Time {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	case float64:
		if v <= 0 {
			return time.Time{}
		}
		if v > 1e12 { // milliseconds
			return time.UnixMilli(int64(v))
		}
		return time.Unix(int64(v), 0)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return ParseTimestamp(f)
		}
	}
	return time.Time{}
}

func stringField(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	}
	return ""
}
