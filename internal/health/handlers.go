package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// ready gates readiness during shutdown: once the server starts draining,
// probes fail fast so load balancers stop routing new traffic.
var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the global readiness gate.
func SetReady(v bool) { ready.Store(v) }

// Probe checks one dependency and returns nil when it is healthy.
type Probe func(ctx context.Context) error

// Handler exposes HTTP handlers for liveness and readiness endpoints.
// Probes are keyed by dependency name and run with a shared per-probe timeout.
type Handler struct {
	Probes       map[string]Probe
	ProbeTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every registered probe and reports per-dependency status.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if len(h.Probes) == 0 {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}

	names := make([]string, 0, len(h.Probes))
	for name := range h.Probes {
		names = append(names, name)
	}
	sort.Strings(names)

	status := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), h.probeTimeout())
		err := h.Probes[name](ctx)
		cancel()
		if err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) probeTimeout() time.Duration {
	if h.ProbeTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.ProbeTimeout
}
