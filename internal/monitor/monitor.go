// Package monitor tracks remote reachability for the sync engine.
//
// Status changes follow a fail-slow, recover-fast rule: the monitor
// flips to offline only after a configurable number of consecutive probe
// failures (so one dropped packet does not flap the status), but flips
// back to online on the first successful probe.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-offsync/internal/adapter"
	"github.com/MKhiriev/go-offsync/internal/config"
	"github.com/MKhiriev/go-offsync/internal/logger"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// ConnectivityMonitor probes the remote with lightweight health checks
// and notifies subscribers synchronously on every status transition.
// The engine starts offline and learns its real status from the first
// probe.
type ConnectivityMonitor struct {
	remote adapter.RemoteClient
	clock  Clock
	logger *logger.Logger

	probeInterval    time.Duration
	failureThreshold int

	mu          sync.Mutex
	online      bool
	failures    int
	nextSubID   int64
	subscribers map[int64]func(online bool)
}

func NewConnectivityMonitor(cfg config.Monitor, remote adapter.RemoteClient, log *logger.Logger) *ConnectivityMonitor {
	interval := cfg.ProbeInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 2
	}

	return &ConnectivityMonitor{
		remote:           remote,
		clock:            realClock{},
		logger:           log,
		probeInterval:    interval,
		failureThreshold: threshold,
		subscribers:      make(map[int64]func(online bool)),
	}
}

// SetClock replaces the wall clock. Intended for tests; call before Start.
func (m *ConnectivityMonitor) SetClock(clock Clock) {
	m.clock = clock
}

// IsOnline returns the cached, debounced connectivity status without
// probing.
func (m *ConnectivityMonitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// CheckNow forces a reachability probe and returns the resulting status.
// Unlike the periodic loop it ignores the probe interval, but the result
// still goes through the same debounce rules.
func (m *ConnectivityMonitor) CheckNow(ctx context.Context) bool {
	return m.probe(ctx)
}

// Subscribe registers a callback invoked synchronously on every status
// transition. The returned function unregisters the callback.
func (m *ConnectivityMonitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSubID++
	id := m.nextSubID
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Run drives the periodic probe loop until ctx is cancelled. An
// immediate probe runs first so the engine learns its status at startup
// without waiting a full interval.
func (m *ConnectivityMonitor) Run(ctx context.Context) {
	m.probe(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(m.probeInterval):
			m.probe(ctx)
		}
	}
}

// probe performs one reachability check and applies the debounce rules.
// The Run loop naturally spaces automatic probes one interval apart, so a
// down endpoint is never hammered.
func (m *ConnectivityMonitor) probe(ctx context.Context) bool {
	err := m.remote.HealthCheck(ctx)

	m.mu.Lock()

	var (
		flipped  bool
		online   bool
		notifies []func(online bool)
	)

	if err == nil {
		m.failures = 0
		if !m.online {
			m.online = true
			flipped = true
		}
	} else {
		m.failures++
		if m.online && m.failures >= m.failureThreshold {
			m.online = false
			flipped = true
		}
	}

	online = m.online
	if flipped {
		notifies = make([]func(online bool), 0, len(m.subscribers))
		for _, fn := range m.subscribers {
			notifies = append(notifies, fn)
		}
	}
	m.mu.Unlock()

	if flipped {
		m.logger.Info().
			Str("func", "ConnectivityMonitor.probe").
			Bool("online", online).
			Msg("connectivity status changed")
		for _, fn := range notifies {
			fn(online)
		}
	}

	return online
}
