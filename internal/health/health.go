// Package health serves the ops endpoints of the dashboard process.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shield-iot/dashboard/internal/archive"
	"github.com/shield-iot/dashboard/internal/model"
	"github.com/shield-iot/dashboard/internal/store"
)

// PushChannel is the part of the transport session the checks need.
type PushChannel interface {
	Connected() bool
}

// Handler answers /healthz with a status summary.
type Handler struct {
	Push    PushChannel
	Store   *store.Store
	Archive *archive.Writer // nil when the mirror is disabled
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status          string                `json:"status"`
		PushConnected   bool                  `json:"push_connected"`
		Connection      model.ConnectionState `json:"connection_state"`
		Sensors         int                   `json:"sensors"`
		LastWriteErrorS float64               `json:"last_write_error_age_sec"`
	}
	st := status{
		PushConnected:   h.Push != nil && h.Push.Connected(),
		Connection:      h.Store.ConnectionStatus().State,
		Sensors:         len(h.Store.Sensors()),
		LastWriteErrorS: h.Archive.LastErrorAge().Seconds(),
	}
	switch {
	case st.PushConnected && h.Archive.LastErrorAge() > 30*time.Second:
		st.Status = "ok"
	case st.PushConnected:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// Ready answers /readyz: 200 only once the push channel is up and the store
// holds a sensor snapshot.
type Ready struct {
	Push  PushChannel
	Store *store.Store
}

func (h *Ready) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	ready := h.Push != nil && h.Push.Connected() && len(h.Store.Sensors()) > 0
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(struct {
		Ready bool `json:"ready"`
	}{ready})
}

// NewMux assembles the ops mux: /healthz, /readyz and /metrics.
func NewMux(push PushChannel, st *store.Store, ar *archive.Writer, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/healthz", &Handler{Push: push, Store: st, Archive: ar})
	mux.Handle("/readyz", &Ready{Push: push, Store: st})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}
