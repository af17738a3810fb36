// Package liveness runs the background scan that flips a node's status to
// offline once it has gone quiet for too long. It never touches component
// status — truth about a running workload belongs to the Agent's next
// telemetry push, not to this monitor.
package liveness

import (
	"sync"
	"time"

	"github.com/cuemby/orbit/pkg/log"
	"github.com/cuemby/orbit/pkg/metrics"
	"github.com/cuemby/orbit/pkg/store"
	"github.com/cuemby/orbit/pkg/types"
	"github.com/rs/zerolog"
)

const (
	defaultScanInterval = 1 * time.Second
	defaultLiveness     = 5 * time.Second
)

// Monitor scans the Store on a fixed interval and transitions nodes to
// offline when they have not been touched within the liveness threshold.
type Monitor struct {
	store    store.Store
	logger   zerolog.Logger
	interval time.Duration
	timeout  time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
}

// New returns a Monitor using the default 1s scan interval and 5s
// liveness threshold.
func New(s store.Store) *Monitor {
	return &Monitor{
		store:    s,
		logger:   log.WithComponent("liveness"),
		interval: defaultScanInterval,
		timeout:  defaultLiveness,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval overrides the scan interval, for tests.
func (m *Monitor) WithInterval(d time.Duration) *Monitor {
	m.interval = d
	return m
}

// WithTimeout overrides the liveness threshold, for tests.
func (m *Monitor) WithTimeout(d time.Duration) *Monitor {
	m.timeout = d
	return m
}

// Start begins the scan loop in a new goroutine.
func (m *Monitor) Start() {
	go m.run()
}

// Stop signals the scan loop to exit. Safe to call once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.stopCh:
		// already stopped
	default:
		close(m.stopCh)
	}
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info().Msg("liveness monitor started")

	for {
		select {
		case <-ticker.C:
			m.Scan(time.Now())
		case <-m.stopCh:
			m.logger.Info().Msg("liveness monitor stopped")
			return
		}
	}
}

// Scan performs one liveness pass against now, exported so tests can drive
// it deterministically instead of depending on wall-clock ticks.
func (m *Monitor) Scan(now time.Time) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.LivenessScanDuration)

	nodes, err := m.store.ListNodes()
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to list nodes")
		return
	}

	for _, n := range nodes {
		if n.Status == types.NodeStatusOffline {
			continue
		}
		if now.Sub(n.LastSeenAt) > m.timeout {
			n.Status = types.NodeStatusOffline
			if err := m.store.UpdateNode(n); err != nil {
				m.logger.Error().Err(err).Str("node_id", n.ID).Msg("failed to mark node offline")
				continue
			}
			metrics.LivenessTransitionsTotal.WithLabelValues("offline").Inc()
			m.logger.Warn().
				Str("node_id", n.ID).
				Dur("since_last_seen", now.Sub(n.LastSeenAt)).
				Msg("node marked offline")
		}
	}
}
