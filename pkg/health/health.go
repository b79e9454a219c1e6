// Package health implements liveness and readiness probes. Probes run on a
// background ticker and flip state only after a run of consecutive results,
// so a single slow database ping does not bounce the service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports on one component. Nil means healthy.
type Check func(ctx context.Context) error

// Probe state transitions are damped: failAfter consecutive failures mark it
// unhealthy, okAfter consecutive passes mark it healthy again.
const (
	failAfter = 3
	okAfter   = 1
)

type probe struct {
	name    string
	timeout time.Duration
	check   Check

	// healthy and lastErr are read from request handlers while tick()
	// writes them from the probe goroutine.
	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	// fails and oks are owned by the single probe goroutine.
	fails int
	oks   int
}

func (p *probe) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		if p.fails++; p.fails >= failAfter {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	if p.oks++; p.oks >= okAfter {
		p.healthy.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error(), true
	}
	return "probe is unhealthy", true
}

// Service aggregates probes and serves them as /livez and /readyz handlers.
// The service also carries a manual ready flag: readiness reports ok only
// once SetReady(true) has been called and every readiness probe passes.
type Service struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// NewService creates a Service with no probes, in the not-ready state.
func NewService() *Service {
	return &Service{}
}

func newProbe(name string, timeout time.Duration, check Check) *probe {
	p := &probe{name: name, timeout: timeout, check: check}
	p.healthy.Store(true)
	return p
}

// Liveness registers a probe that gates /livez. Use it for conditions that
// only a restart fixes, like goroutine leaks.
func (s *Service) Liveness(name string, timeout time.Duration, check Check) {
	s.mu.Lock()
	s.liveness = append(s.liveness, newProbe(name, timeout, check))
	s.mu.Unlock()
}

// Readiness registers a probe that gates /readyz. Use it for dependencies
// the service cannot serve without, like database connectivity.
func (s *Service) Readiness(name string, timeout time.Duration, check Check) {
	s.mu.Lock()
	s.readiness = append(s.readiness, newProbe(name, timeout, check))
	s.mu.Unlock()
}

// Start launches one goroutine per registered probe, each ticking at the
// given interval. Register all probes before calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	probes := make([]*probe, 0, len(s.liveness)+len(s.readiness))
	probes = append(probes, s.liveness...)
	probes = append(probes, s.readiness...)
	s.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.tick(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.tick(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels all probe goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness flag. Call with true after startup
// completes and with false at the start of graceful shutdown so the load
// balancer drains the instance before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

type probeResponse struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

// LiveHandler serves the liveness endpoint: 200 while every liveness probe
// passes, 503 with per-probe failure messages otherwise.
func (s *Service) LiveHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := append([]*probe(nil), s.liveness...)
	s.mu.RUnlock()

	writeProbeResponse(w, collectFailures(probes))
}

// ReadyHandler serves the readiness endpoint: 200 only when the service has
// been marked ready and every readiness probe passes.
func (s *Service) ReadyHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := append([]*probe(nil), s.readiness...)
	s.mu.RUnlock()

	failures := collectFailures(probes)
	if !s.ready.Load() {
		failures["service"] = "not ready"
	}
	writeProbeResponse(w, failures)
}

func collectFailures(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		if msg, failed := p.failure(); failed {
			failures[p.name] = msg
		}
	}
	return failures
}

func writeProbeResponse(w http.ResponseWriter, failures map[string]string) {
	resp := probeResponse{Status: "ok"}
	status := http.StatusOK
	if len(failures) > 0 {
		resp = probeResponse{Status: "unhealthy", Failures: failures}
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
