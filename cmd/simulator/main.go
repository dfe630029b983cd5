// Command simulator publishes mock readings and threshold alarms for a small
// SHIELD sensor fleet, so the dashboard can be exercised without hardware.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/shield-iot/dashboard/internal/model"
)

type fleetSensor struct {
	ID       string
	Type     model.SensorType
	Location string
}

var fleet = []fleetSensor{
	{"HUMID_001", model.TypeHumidity, "Building A - Floor 1"},
	{"HUMID_002", model.TypeHumidity, "Building A - Floor 2"},
	{"VIBR_001", model.TypeVibration, "Building B - Foundation"},
	{"VIBR_002", model.TypeVibration, "Building B - Bridge"},
	{"STRESS_001", model.TypeStress, "Building C - Pillar 1"},
	{"STRESS_002", model.TypeStress, "Building C - Pillar 2"},
}

func main() {
	var (
		host     = flag.String("host", getenv("MQTT_HOST", "localhost"), "broker host")
		port     = flag.Int("port", 1883, "broker port")
		mode     = flag.String("mode", "continuous", "continuous or burst")
		interval = flag.Duration("interval", 5*time.Second, "publish interval in continuous mode")
		count    = flag.Int("count", 10, "rounds in burst mode")
	)
	flag.Parse()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", *host, *port))
	opts.SetClientID("shield-simulator-" + uuid.NewString()[:8])
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("connect to broker: %v", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("connected to %s:%d", *host, *port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g := &generator{client: client}
	switch *mode {
	case "burst":
		g.runBurst(ctx, *count)
	default:
		g.runContinuous(ctx, *interval)
	}
}

type generator struct {
	client mqtt.Client
}

func (g *generator) runContinuous(ctx context.Context, interval time.Duration) {
	log.Printf("continuous generation every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		g.publishRound()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (g *generator) runBurst(ctx context.Context, rounds int) {
	log.Printf("burst of %d round(s)", rounds)
	for i := 0; i < rounds; i++ {
		g.publishRound()
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (g *generator) publishRound() {
	for _, sn := range fleet {
		value := nextValue(sn.Type)
		g.publishReading(sn, value)
		if level := alarmLevel(sn.Type, value); level != "" {
			g.publishAlarm(sn, level, value)
		}
	}
}

// nextValue draws a realistic reading for the sensor type: mostly in the
// normal band with occasional excursions into warning and critical ranges.
func nextValue(typ model.SensorType) float64 {
	switch typ {
	case model.TypeHumidity:
		return clamp(rand.Float64()*30+35+rand.Float64()*10-5, 0, 100)
	case model.TypeVibration:
		return max0(rand.Float64()*15 + rand.Float64()*10 - 2)
	case model.TypeStress:
		return max0(rand.Float64()*35 + 10 + rand.Float64()*15 - 5)
	default:
		return rand.Float64() * 100
	}
}

func alarmLevel(typ model.SensorType, value float64) model.AlarmLevel {
	switch typ {
	case model.TypeHumidity:
		switch {
		case value >= 80:
			return model.LevelCritical
		case value >= 70:
			return model.LevelWarning
		}
	case model.TypeVibration:
		switch {
		case value >= 50:
			return model.LevelCritical
		case value >= 20:
			return model.LevelWarning
		}
	case model.TypeStress:
		switch {
		case value >= 80:
			return model.LevelCritical
		case value >= 60:
			return model.LevelWarning
		}
	}
	return ""
}

func (g *generator) publishReading(sn fleetSensor, value float64) {
	payload, _ := json.Marshal(map[string]any{
		"type":      string(sn.Type),
		"value":     round2(value),
		"location":  sn.Location,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	topic := fmt.Sprintf("sensors/%s/data", sn.ID)
	if token := g.client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
		log.Printf("publish %s: %v", topic, token.Error())
		return
	}
	log.Printf("published %s: %.2f", sn.ID, value)
}

func (g *generator) publishAlarm(sn fleetSensor, level model.AlarmLevel, value float64) {
	message := fmt.Sprintf("%s level elevated: %.2f", sn.Type, value)
	if level == model.LevelCritical {
		message = fmt.Sprintf("CRITICAL: %s threshold exceeded: %.2f", sn.Type, value)
	}
	payload, _ := json.Marshal(map[string]any{
		"id":        uuid.NewString(),
		"type":      "threshold",
		"level":     string(level),
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	topic := "alarms/" + sn.ID
	if token := g.client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
		log.Printf("publish %s: %v", topic, token.Error())
		return
	}
	log.Printf("ALARM %s (%s): %s", sn.ID, level, message)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
