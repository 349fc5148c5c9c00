// Package connectivity tracks whether the upstream backend is reachable and
// drives drain-on-reconnect. It is the single source of truth for "are we
// online".
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/observability"
)

// Prober checks the upstream link once. Implementations carry their own
// request timeout so a probe never blocks the poll loop for long.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Monitor polls a Prober and publishes online/offline transitions. Without a
// prober it runs in degraded mode: permanently assumed online, so the sync
// path still works in environments with no health endpoint to probe.
type Monitor struct {
	prober   Prober
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu        sync.Mutex
	online    bool
	callbacks []func()
}

// New creates a Monitor. The initial state comes from one synchronous probe,
// matching whatever the environment reports at construction time.
func New(prober Prober, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Monitor {
	m := &Monitor{
		prober:   prober,
		interval: interval,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
	if prober == nil {
		m.online = true
		logger.Warn("no connectivity prober configured, assuming online")
	} else {
		m.online = prober.Probe(context.Background())
	}
	m.setGauge(m.online)
	return m
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnReconnect registers a callback fired once per offline→online transition.
// Callbacks run from the poll goroutine; long work should be spawned off.
func (m *Monitor) OnReconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Run polls until the context is cancelled. In degraded mode (no prober) the
// state never changes and Run returns immediately.
func (m *Monitor) Run(ctx context.Context) {
	if m.prober == nil {
		<-ctx.Done()
		return
	}
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.observe(m.prober.Probe(ctx))
		}
	}
}

// observe applies one probe result, firing reconnect callbacks exactly once
// per offline→online transition. An online→offline transition only flips
// state; anything in flight completes or fails on its own terms.
func (m *Monitor) observe(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	var fire []func()
	if online && !was {
		fire = append(fire, m.callbacks...)
	}
	m.mu.Unlock()

	if online == was {
		return
	}
	m.setGauge(online)
	if online {
		m.logger.Info("connectivity restored")
		for _, fn := range fire {
			fn()
		}
	} else {
		m.logger.Warn("connectivity lost")
	}
}

func (m *Monitor) setGauge(online bool) {
	if m.metrics == nil {
		return
	}
	if online {
		m.metrics.Online.Set(1)
	} else {
		m.metrics.Online.Set(0)
	}
}
