// Package health backs the /livez and /readyz probe endpoints.
//
// Registered checks run periodically on a single background loop. A check
// flips to unhealthy only after failing several consecutive runs and recovers
// on the first passing run, so a transient blip never takes the service out
// of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. It returns nil when the component is
// healthy.
type CheckFunc func(ctx context.Context) error

const (
	failuresBeforeUnhealthy = 3
	successesBeforeHealthy  = 1
)

// probe is one registered check plus its observed state. State is guarded by
// mu: the run loop writes it, the endpoints read it.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	mu      sync.Mutex
	healthy bool
	lastErr error
	fails   int
	oks     int
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	// Healthy until proven otherwise, so registration order does not race
	// the first run.
	return &probe{name: name, timeout: timeout, check: check, healthy: true}
}

// run executes the check once and applies the thresholds.
func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastErr = err
	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= failuresBeforeUnhealthy {
			p.healthy = false
		}
		return
	}
	p.fails = 0
	p.oks++
	if p.oks >= successesBeforeHealthy {
		p.healthy = true
	}
}

// status returns the probe's current health and last observed error.
func (p *probe) status() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy, p.lastErr
}

// Health owns the liveness and readiness probes of the service.
type Health struct {
	ready atomic.Bool

	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New creates a Health in the not-ready state. Register checks, then call
// Start and SetReady(true) once initialization finishes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a liveness probe (process-local health, e.g.
// goroutine count). Must be called before Start.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.liveness = append(h.liveness, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a readiness probe (dependency health, e.g. the
// database). Must be called before Start.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.readiness = append(h.readiness, newProbe(name, timeout, check))
}

// Start runs every registered probe once, then again at the given interval
// on one background goroutine until Stop or context cancellation.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, h.cancel = context.WithCancel(ctx)

	probes := make([]*probe, 0, len(h.liveness)+len(h.readiness))
	probes = append(probes, h.liveness...)
	probes = append(probes, h.readiness...)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			for _, p := range probes {
				p.run(ctx)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop cancels the probe loop. Safe to call more than once.
func (h *Health) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
}

// SetReady flips the manual readiness gate: true once initialization is done,
// false at the start of graceful shutdown to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LiveEndpoint serves /livez: 200 while every liveness probe passes, 503 with
// the failing probes otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.liveness))
}

// ReadyEndpoint serves /readyz: 200 only when the service is marked ready and
// every readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failing := failures(h.readiness)
	if !h.ready.Load() {
		failing["_readiness"] = "service is not ready"
	}
	writeStatus(w, failing)
}

// statusResponse is the JSON body served by both endpoints.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func failures(probes []*probe) map[string]string {
	failing := make(map[string]string)
	for _, p := range probes {
		healthy, err := p.status()
		if healthy {
			continue
		}
		if err != nil {
			failing[p.name] = err.Error()
		} else {
			failing[p.name] = "check is unhealthy"
		}
	}
	return failing
}

func writeStatus(w http.ResponseWriter, failing map[string]string) {
	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failing) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failing
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
