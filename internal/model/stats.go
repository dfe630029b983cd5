package model

// SystemStats is the aggregate snapshot served by the backend. It is
// replaced wholesale on every fetch, never merged.
type SystemStats struct {
	ActiveSensors        int `json:"active_sensors"`
	UnacknowledgedAlarms int `json:"unacknowledged_alarms"`
	TodayReadings        int `json:"today_readings"`
}

// ConnectionState of the push channel.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// ConnectionStatus pairs the state with a human-readable message for the UI.
type ConnectionStatus struct {
	State   ConnectionState `json:"state"`
	Message string          `json:"message"`
}
