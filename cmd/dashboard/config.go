package main

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// push channel
	MQTTHost string
	MQTTPort int
	MQTTUser string
	MQTTPass string
	ClientID string

	// backend query endpoints
	BackendURL string
	TimeoutMs  int

	// state caps and cadence
	HistoryLimit  int
	AlarmLimit    int
	ThrottleMs    int
	SweepInterval time.Duration
	StatsInterval time.Duration
	CardTick      time.Duration

	// optional influx mirror (disabled while the token is empty)
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// ops HTTP
	OpsPort string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvDur(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if p, err := time.ParseDuration(v); err == nil {
			return p
		}
	}
	return d
}

func loadConfig() Config {
	return Config{
		MQTTHost: getenv("MQTT_HOST", "localhost"),
		MQTTPort: getenvInt("MQTT_PORT", 1883),
		MQTTUser: getenv("MQTT_USER", ""),
		MQTTPass: getenv("MQTT_PASSWORD", ""),
		ClientID: getenv("MQTT_CLIENT_ID", "shield-dashboard"),

		BackendURL: getenv("BACKEND_URL", "http://localhost:5000"),
		TimeoutMs:  getenvInt("TIMEOUT_MS", 3000),

		HistoryLimit:  getenvInt("HISTORY_LIMIT", 100),
		AlarmLimit:    getenvInt("ALARM_LIMIT", 1000),
		ThrottleMs:    getenvInt("CHART_THROTTLE_MS", 1000),
		SweepInterval: getenvDur("SWEEP_INTERVAL", 30*time.Second),
		StatsInterval: getenvDur("STATS_INTERVAL", 5*time.Second),
		CardTick:      getenvDur("CARD_TICK", time.Second),

		InfluxURL:    getenv("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  getenv("INFLUX_TOKEN", ""),
		InfluxOrg:    getenv("INFLUX_ORG", "shield"),
		InfluxBucket: getenv("INFLUX_BUCKET", "readings"),

		OpsPort: getenv("OPS_PORT", "8090"),
	}
}
