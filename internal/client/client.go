// Package client pulls state from the backend's query endpoints. Calls are
// stateless request/response; each endpoint sits behind its own circuit
// breaker so a dead backend degrades to fast failures instead of piling up
// timeouts.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/internal/series"
)

// Client talks to the SHIELD backend REST API.
type Client struct {
	base string
	http *http.Client

	sensorsCB *gobreaker.CircuitBreaker
	historyCB *gobreaker.CircuitBreaker
	alarmsCB  *gobreaker.CircuitBreaker
	ackCB     *gobreaker.CircuitBreaker
	statsCB   *gobreaker.CircuitBreaker
}

// New builds a client against base (e.g. "http://localhost:5000").
func New(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		base:      strings.TrimRight(strings.TrimSpace(base), "/"),
		http:      &http.Client{Timeout: timeout},
		sensorsCB: mkCB("sensors"),
		historyCB: mkCB("history"),
		alarmsCB:  mkCB("alarms"),
		ackCB:     mkCB("acknowledge"),
		statsCB:   mkCB("stats"),
	}
}

func mkCB(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  15 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})
}

func (c *Client) getJSON(ctx context.Context, cb *gobreaker.CircuitBreaker, path string, out any) error {
	_, err := cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
		if err != nil {
			return nil, err
		}
		res, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("GET %s: %w", path, err)
		}
		defer res.Body.Close()
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return nil, fmt.Errorf("GET %s -> %s", path, res.Status)
		}
		return nil, json.NewDecoder(res.Body).Decode(out)
	})
	return err
}

type sensorRow struct {
	SensorID   string `json:"sensor_id"`
	SensorType string `json:"sensor_type"`
	Location   string `json:"location"`
	Status     string `json:"status"`
}

// Sensors fetches the authoritative sensor snapshot (metadata only).
func (c *Client) Sensors(ctx context.Context) ([]model.Sensor, error) {
	var rows []sensorRow
	if err := c.getJSON(ctx, c.sensorsCB, "/api/sensors", &rows); err != nil {
		return nil, err
	}
	out := make([]model.Sensor, 0, len(rows))
	for _, r := range rows {
		if r.SensorID == "" {
			continue
		}
		out = append(out, model.Sensor{
			ID:       r.SensorID,
			Type:     model.ParseSensorType(r.SensorType),
			Location: r.Location,
			Status:   model.SensorStatus(r.Status),
		})
	}
	return out, nil
}

type historyRow struct {
	Value     any `json:"value"`
	Timestamp any `json:"timestamp"`
}

// History fetches up to limit readings for one sensor, newest first as the
// backend returns them. Rows without a usable value are skipped.
func (c *Client) History(ctx context.Context, sensorID string, limit int) ([]series.Point, error) {
	path := "/api/sensors/" + sensorID + "/data?limit=" + strconv.Itoa(limit)
	var rows []historyRow
	if err := c.getJSON(ctx, c.historyCB, path, &rows); err != nil {
		return nil, err
	}
	out := make([]series.Point, 0, len(rows))
	for _, r := range rows {
		v := model.SanitizeValue(r.Value)
		if v == nil {
			continue
		}
		ts := model.ParseTimestamp(r.Timestamp)
		if ts.IsZero() {
			continue
		}
		out = append(out, series.Point{Value: *v, Timestamp: ts})
	}
	return out, nil
}

type alarmRow struct {
	ID           any    `json:"id"`
	SensorID     string `json:"sensor_id"`
	AlarmType    string `json:"alarm_type"`
	Level        string `json:"level"`
	Message      string `json:"message"`
	Timestamp    any    `json:"timestamp"`
	Acknowledged bool   `json:"acknowledged"`
}

// Alarms fetches up to limit alarm records, optionally filtered by their
// acknowledged flag (nil means both).
func (c *Client) Alarms(ctx context.Context, limit int, acknowledged *bool) ([]model.Alarm, error) {
	path := "/api/alarms?limit=" + strconv.Itoa(limit)
	if acknowledged != nil {
		path += "&acknowledged=" + strconv.FormatBool(*acknowledged)
	}
	var rows []alarmRow
	if err := c.getJSON(ctx, c.alarmsCB, path, &rows); err != nil {
		return nil, err
	}
	out := make([]model.Alarm, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Alarm{
			ID:           alarmID(r.ID),
			SensorID:     r.SensorID,
			Type:         r.AlarmType,
			Level:        model.ParseAlarmLevel(r.Level),
			Message:      r.Message,
			Timestamp:    model.ParseTimestamp(r.Timestamp),
			Acknowledged: r.Acknowledged,
		})
	}
	return out, nil
}

// Acknowledge confirms one alarm with the backend. Callers flip the local
// flag only after this succeeds.
func (c *Client) Acknowledge(ctx context.Context, alarmID string) error {
	_, err := c.ackCB.Execute(func() (any, error) {
		path := "/api/alarms/" + alarmID + "/acknowledge"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(nil))
		if err != nil {
			return nil, err
		}
		res, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("POST %s: %w", path, err)
		}
		defer res.Body.Close()
		var body struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(res.Body).Decode(&body)
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return nil, fmt.Errorf("POST %s -> %s: %s", path, res.Status, body.Message)
		}
		if body.Status != "" && body.Status != "success" {
			return nil, fmt.Errorf("acknowledge %s: %s", alarmID, body.Message)
		}
		return nil, nil
	})
	return err
}

// Stats fetches the aggregate dashboard snapshot.
func (c *Client) Stats(ctx context.Context) (model.SystemStats, error) {
	var out model.SystemStats
	if err := c.getJSON(ctx, c.statsCB, "/api/dashboard/stats", &out); err != nil {
		return model.SystemStats{}, err
	}
	return out, nil
}

func alarmID(raw any) string {
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
