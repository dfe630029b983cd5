package model

import (
	"strings"
	"time"
)

// SensorType classifies what a device measures.
type SensorType string

const (
	TypeHumidity  SensorType = "humidity"
	TypeVibration SensorType = "vibration"
	TypeStress    SensorType = "stress"
	TypeOther     SensorType = "other"
)

// ParseSensorType maps a wire-level type string onto a known SensorType.
// Anything unrecognized becomes TypeOther.
func ParseSensorType(s string) SensorType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "humidity":
		return TypeHumidity
	case "vibration":
		return TypeVibration
	case "stress":
		return TypeStress
	default:
		return TypeOther
	}
}

// SensorStatus is the derived health classification of a sensor.
type SensorStatus string

const (
	// StatusActive is the placeholder for a sensor that has metadata but no
	// reading yet.
	StatusActive   SensorStatus = "active"
	StatusNormal   SensorStatus = "normal"
	StatusWarning  SensorStatus = "warning"
	StatusCritical SensorStatus = "critical"
	StatusOffline  SensorStatus = "offline"
)

// Sensor represents one monitored device. LastValue is nil until the first
// accepted reading; a zero LastUpdate means no reading was ever applied.
type Sensor struct {
	ID         string       `json:"sensor_id"`
	Type       SensorType   `json:"sensor_type"`
	Location   string       `json:"location"`
	Status     SensorStatus `json:"status"`
	LastValue  *float64     `json:"last_value,omitempty"`
	LastUpdate time.Time    `json:"last_update"`
}
