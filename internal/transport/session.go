// Package transport owns the push channel: one MQTT session subscribed to
// the sensor and alarm topics. It decodes payloads into typed events, hands
// them to a Sink, and reports connection-state transitions; it never
// interprets what an event means for the state.
package transport

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/shield-iot/dashboard/internal/metrics"
	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/pkg/dedup"
)

// Topics carrying push events.
const (
	TopicSensorData      = "sensors/+/data"
	TopicAlarms          = "alarms/+"
	TopicSensorConnected = "dashboard/events/sensor_connected"
)

// Sink consumes decoded push events.
type Sink interface {
	HandleSensorUpdate(ev model.SensorUpdateEvent)
	HandleAlarmUpdate(ev model.AlarmUpdateEvent)
	HandleSensorConnected(ev model.SensorConnectedEvent)
}

// Config for the broker connection.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string

	ConnectRetries uint64        // bounded initial-connect retries
	DedupTTL       time.Duration // retransmission suppression window
}

// Session is one push-channel connection. Reconnection and backoff after the
// initial connect are delegated to the underlying client; the session only
// reacts to the transitions.
type Session struct {
	cfg      Config
	sink     Sink
	onStatus func(model.ConnectionStatus)
	onResync func(context.Context)
	metrics  *metrics.Set

	client mqtt.Client
	dedupe *dedup.Deduper
	ctx    context.Context
}

// New wires a session. onStatus receives every connection-state transition;
// onResync runs (in its own goroutine) after each successful connect so the
// caller can re-seed its state from a fresh snapshot.
func New(cfg Config, sink Sink, onStatus func(model.ConnectionStatus), onResync func(context.Context), m *metrics.Set) *Session {
	if cfg.ConnectRetries == 0 {
		cfg.ConnectRetries = 5
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "shield-dashboard"
	}
	if onStatus == nil {
		onStatus = func(model.ConnectionStatus) {}
	}
	return &Session{
		cfg:      cfg,
		sink:     sink,
		onStatus: onStatus,
		onResync: onResync,
		metrics:  m,
		dedupe:   dedup.New(cfg.DedupTTL, 0),
	}
}

// Connect establishes the session, retrying the initial connect with
// exponential backoff. It returns once connected or when retries are
// exhausted; the ctx also bounds the session lifetime.
func (s *Session) Connect(ctx context.Context) error {
	s.ctx = ctx
	addr := fmt.Sprintf("tcp://%s:%d", s.cfg.Host, s.cfg.Port)
	s.onStatus(model.ConnectionStatus{State: model.StateConnecting, Message: "connecting to " + addr})

	opts := mqtt.NewClientOptions()
	opts.AddBroker(addr)
	opts.SetUsername(s.cfg.User)
	opts.SetPassword(s.cfg.Password)
	opts.SetClientID(s.cfg.ClientID + "-" + uuid.NewString()[:8])
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(s.handleConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.onStatus(model.ConnectionStatus{State: model.StateError, Message: "connection lost: " + err.Error()})
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		s.onStatus(model.ConnectionStatus{State: model.StateConnecting, Message: "reconnecting to " + addr})
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(func() error {
		s.client = mqtt.NewClient(opts)
		if token := s.client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("transport: connect to %s failed: %v", addr, token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.ConnectRetries-1), ctx))
	if err != nil {
		s.onStatus(model.ConnectionStatus{State: model.StateError, Message: "could not reach broker: " + err.Error()})
		return fmt.Errorf("could not establish MQTT session after retries: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return nil
}

// handleConnect runs on every successful (re)connect: resubscribe, report
// connected, trigger the resync hook.
func (s *Session) handleConnect(c mqtt.Client) {
	for _, topic := range []string{TopicSensorData, TopicAlarms, TopicSensorConnected} {
		token := c.Subscribe(topic, 1, s.handleMessage)
		token.Wait()
		if token.Error() != nil {
			log.Printf("transport: subscribe %s failed: %v", topic, token.Error())
		} else {
			log.Printf("transport: subscribed to %s", topic)
		}
	}
	s.onStatus(model.ConnectionStatus{State: model.StateConnected, Message: "connected"})
	if s.onResync != nil {
		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		go s.onResync(ctx)
	}
}

// Close tears the session down.
func (s *Session) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	s.onStatus(model.ConnectionStatus{State: model.StateDisconnected, Message: "disconnected"})
}

// Connected reports whether the underlying channel is open.
func (s *Session) Connected() bool {
	return s.client != nil && s.client.IsConnectionOpen()
}
