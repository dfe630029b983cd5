package model

import (
	"strings"
	"time"
)

// AlarmLevel is the severity of a threshold alarm.
type AlarmLevel string

const (
	LevelCritical AlarmLevel = "critical"
	LevelWarning  AlarmLevel = "warning"
	LevelInfo     AlarmLevel = "info"
)

// ParseAlarmLevel normalizes a wire-level severity string; unknown values
// degrade to info rather than failing.
func ParseAlarmLevel(s string) AlarmLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return LevelCritical
	case "warning":
		return LevelWarning
	default:
		return LevelInfo
	}
}

// Alarm is one threshold-triggered alarm record. The ID is assigned by the
// backend; Acknowledged stays a local flag until the acknowledge round-trip
// to the backend succeeds.
type Alarm struct {
	ID           string     `json:"id"`
	SensorID     string     `json:"sensor_id"`
	Type         string     `json:"alarm_type,omitempty"`
	Level        AlarmLevel `json:"level"`
	Message      string     `json:"message"`
	Timestamp    time.Time  `json:"timestamp"`
	Acknowledged bool       `json:"acknowledged"`
}
