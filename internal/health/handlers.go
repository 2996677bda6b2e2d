// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/loja-api/internal/common"
)

var draining atomic.Bool

// SetReady flips readiness. The API marks itself not ready while shutting down.
func SetReady(ready bool) { draining.Store(!ready) }

// Probe checks one dependency. Optional probes are reported without failing readiness.
type Probe struct {
	Name     string
	Check    func(ctx context.Context) error
	Timeout  time.Duration
	Optional bool
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes []Probe
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe and answers 503 when a required one fails.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	status := make(map[string]string, len(h.Probes))
	healthy := true
	for _, p := range h.Probes {
		result := "ok"
		if err := run(r.Context(), p); err != nil {
			result = err.Error()
			if !p.Optional {
				healthy = false
			}
		}
		status[p.Name] = result
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func run(ctx context.Context, p Probe) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}
