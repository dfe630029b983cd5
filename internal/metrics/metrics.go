// Package metrics exposes the prometheus instruments of the dashboard core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set bundles the counters touched by the ingestion and rendering paths.
// All methods are nil-safe so components can run without instrumentation
// (tests, the simulator).
type Set struct {
	eventsReceived  *prometheus.CounterVec
	eventsInvalid   prometheus.Counter
	eventsDuplicate prometheus.Counter
	readingsDropped prometheus.Counter
	chartThrottled  prometheus.Counter
	notifyPanics    prometheus.Counter
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_push_events_total",
			Help: "Push events received from the broker, by event type.",
		}, []string{"type"}),
		eventsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_push_events_invalid_total",
			Help: "Push events discarded because the payload could not be decoded.",
		}),
		eventsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_push_events_duplicate_total",
			Help: "Push events suppressed as retransmissions.",
		}),
		readingsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_readings_dropped_total",
			Help: "Readings dropped because the sensor id is not registered.",
		}),
		chartThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_chart_updates_throttled_total",
			Help: "Chart updates suppressed by the per-series rate limit.",
		}),
		notifyPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_subscriber_panics_total",
			Help: "Store subscriber callbacks that panicked and were isolated.",
		}),
	}
	reg.MustRegister(s.eventsReceived, s.eventsInvalid, s.eventsDuplicate,
		s.readingsDropped, s.chartThrottled, s.notifyPanics)
	return s
}

func (s *Set) EventReceived(eventType string) {
	if s != nil {
		s.eventsReceived.WithLabelValues(eventType).Inc()
	}
}

func (s *Set) EventInvalid() {
	if s != nil {
		s.eventsInvalid.Inc()
	}
}

func (s *Set) EventDuplicate() {
	if s != nil {
		s.eventsDuplicate.Inc()
	}
}

func (s *Set) ReadingDropped() {
	if s != nil {
		s.readingsDropped.Inc()
	}
}

func (s *Set) ChartThrottled() {
	if s != nil {
		s.chartThrottled.Inc()
	}
}

func (s *Set) NotifyPanic() {
	if s != nil {
		s.notifyPanics.Inc()
	}
}
